package pumped

import "fmt"

// ValidationResult is what a Schema's Validate returns: either a validated
// value, or a non-empty set of issues. Never both.
type ValidationResult struct {
	Value  any
	Issues []Issue
}

// Schema is the core's vendor-neutral validation contract. Any library
// (JSON Schema, CUE, protobuf reflection, a hand-rolled validator) can back
// it by implementing these three methods; the core never imports a
// validation library directly.
type Schema interface {
	// Vendor names the library backing this schema (e.g. "cue", "custom").
	Vendor() string
	// Version identifies the schema's own revision, for diagnostics.
	Version() string
	// Validate checks data and returns either a validated value or issues.
	// Implementations must be synchronous; see AsyncSchema.
	Validate(data any) ValidationResult
}

// AsyncSchema marks a Schema whose Validate cannot be evaluated synchronously
// (for example one that defers to a remote validation service). validate()
// rejects these with SchemaAsyncUnsupportedError rather than calling Validate.
type AsyncSchema interface {
	Schema
	Async() bool
}

// validate runs schema.Validate synchronously and turns its result into a
// (value, error) pair, matching the rest of the core's error conventions.
func validate(schema Schema, data any) (any, error) {
	if schema == nil {
		return data, nil
	}
	if as, ok := schema.(AsyncSchema); ok && as.Async() {
		return nil, &SchemaAsyncUnsupportedError{Schema: schema}
	}

	result := schema.Validate(data)
	if len(result.Issues) > 0 {
		return nil, &SchemaInvalidError{Schema: schema, Issues: result.Issues}
	}
	return result.Value, nil
}

// customSchema adapts a plain Go validator function into a Schema, with no
// external validation library required.
type customSchema[T any] struct {
	validator func(any) (T, error)
}

func (s *customSchema[T]) Vendor() string  { return "custom" }
func (s *customSchema[T]) Version() string { return "1" }

func (s *customSchema[T]) Validate(data any) ValidationResult {
	if s.validator == nil {
		typed, ok := data.(T)
		if !ok {
			return ValidationResult{Issues: []Issue{{Message: fmt.Sprintf("expected %T, got %T", *new(T), data)}}}
		}
		return ValidationResult{Value: typed}
	}

	value, err := s.validator(data)
	if err != nil {
		return ValidationResult{Issues: []Issue{{Message: err.Error()}}}
	}
	return ValidationResult{Value: value}
}

// Custom mints a schema with no external validation library. With no
// validator it performs a plain type assertion to T; a validator may impose
// further checks and coerce the result.
func Custom[T any](validator ...func(any) (T, error)) Schema {
	s := &customSchema[T]{}
	if len(validator) > 0 {
		s.validator = validator[0]
	}
	return s
}

// Promised represents an eventual-or-immediate value, so synchronous and
// asynchronous producers share one shape. At the boundary it is always collapsed back to a plain
// (value, error) pair.
type Promised[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// NewPromised wraps an already-known value as a resolved Promised.
func NewPromised[T any](val T, err error) *Promised[T] {
	p := &Promised[T]{done: make(chan struct{}), val: val, err: err}
	close(p.done)
	return p
}

// CreatePromised runs fn on its own goroutine and returns a Promised that
// resolves when fn returns.
func CreatePromised[T any](fn func() (T, error)) *Promised[T] {
	p := &Promised[T]{done: make(chan struct{})}
	go func() {
		p.val, p.err = fn()
		close(p.done)
	}()
	return p
}

// Try blocks until the Promised settles and returns its outcome.
func (p *Promised[T]) Try() (T, error) {
	<-p.done
	return p.val, p.err
}

// Map transforms a settled value, preserving any error untouched.
func Map[T, U any](p *Promised[T], fn func(T) U) *Promised[U] {
	return CreatePromised(func() (U, error) {
		val, err := p.Try()
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(val), nil
	})
}

// MapError transforms a settled error, preserving any value untouched.
func MapError[T any](p *Promised[T], fn func(error) error) *Promised[T] {
	return CreatePromised(func() (T, error) {
		val, err := p.Try()
		if err != nil {
			return val, fn(err)
		}
		return val, nil
	})
}
