package pumped

import (
	"fmt"
	"strings"
)

// Issue describes a single schema validation failure.
type Issue struct {
	Message string
	Path    []string
}

// SchemaInvalidError is returned when validate finds one or more issues.
type SchemaInvalidError struct {
	Schema Schema
	Issues []Issue
}

func (e *SchemaInvalidError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		if len(issue.Path) > 0 {
			msgs[i] = fmt.Sprintf("%s: %s", strings.Join(issue.Path, "."), issue.Message)
		} else {
			msgs[i] = issue.Message
		}
	}
	return fmt.Sprintf("schema invalid: %s", strings.Join(msgs, "; "))
}

// SchemaAsyncUnsupportedError is returned when a schema's validation is
// intrinsically asynchronous (a vendor wrapping a channel or future), which
// the core's synchronous validate contract cannot support.
type SchemaAsyncUnsupportedError struct {
	Schema Schema
}

func (e *SchemaAsyncUnsupportedError) Error() string {
	return fmt.Sprintf("schema %s/%s: validate is asynchronous, unsupported by synchronous validate()", e.Schema.Vendor(), e.Schema.Version())
}

// TagMissingError is returned when extractFrom finds no value for a required tag.
type TagMissingError struct {
	Label string
}

func (e *TagMissingError) Error() string {
	return fmt.Sprintf("tag missing: %s", e.Label)
}

// DependencyResolutionError is returned on a dependency cycle, or an invalid
// dependency declaration.
type DependencyResolutionError struct {
	Cycle []string
	Cause error
}

func (e *DependencyResolutionError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("dependency resolution failed: %v", e.Cause)
	}
	return "dependency resolution failed"
}

func (e *DependencyResolutionError) Unwrap() error { return e.Cause }

// FactoryFailedError wraps an error returned by a factory, enriched with
// the executor name. Path is printed when set; the resolver leaves it empty.
// A panicking factory is not recovered into this error.
type FactoryFailedError struct {
	Executor string
	Path     []string
	Cause    error
}

func (e *FactoryFailedError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("factory failed for %s (path: %s): %v", e.Executor, strings.Join(e.Path, " -> "), e.Cause)
	}
	return fmt.Sprintf("factory failed for %s: %v", e.Executor, e.Cause)
}

func (e *FactoryFailedError) Unwrap() error { return e.Cause }

// ReleaseError aggregates every cleanup failure observed during one release.
type ReleaseError struct {
	Executor string
	Causes   []error
}

func (e *ReleaseError) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return fmt.Sprintf("release of %s had %d cleanup failure(s): %s", e.Executor, len(e.Causes), strings.Join(msgs, "; "))
}

func (e *ReleaseError) Unwrap() []error { return e.Causes }

// ScopeDisposedError is returned for any operation attempted on a disposed scope.
type ScopeDisposedError struct{}

func (e *ScopeDisposedError) Error() string { return "scope is disposed" }

// ContextClosedError is returned when an execution context that is closing
// or closed is asked to start new work.
type ContextClosedError struct {
	ContextID string
}

func (e *ContextClosedError) Error() string {
	return fmt.Sprintf("execution context %s is closing or closed", e.ContextID)
}

// AbortedError signals a cancelled or timed-out execution.
type AbortedError struct {
	Reason string
	Cause  error
}

func (e *AbortedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("aborted: %s", e.Reason)
	}
	return "aborted"
}

func (e *AbortedError) Unwrap() error { return e.Cause }

// ExtensionError wraps a panic or error raised by an extension hook.
type ExtensionError struct {
	Extension string
	Hook      string
	Cause     error
}

func (e *ExtensionError) Error() string {
	return fmt.Sprintf("extension %q failed in %s: %v", e.Extension, e.Hook, e.Cause)
}

func (e *ExtensionError) Unwrap() error { return e.Cause }

// JournalError reports a structurally impossible journal state.
type JournalError struct {
	Key     string
	Message string
}

func (e *JournalError) Error() string {
	return fmt.Sprintf("journal error for key %q: %s", e.Key, e.Message)
}

// SafeTypeAssertion performs a type assertion with a descriptive error
// instead of a panic, used at the boundary between the type-erased scope
// internals and the generic public API.
func SafeTypeAssertion[T any](value any) (T, error) {
	if value == nil {
		var zero T
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("type assertion error: expected %T, got %T (value: %v)", zero, value, value)
	}

	return typed, nil
}
