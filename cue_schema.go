package pumped

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// cueSchema backs Schema with a CUE constraint, letting flow input/output
// contracts be written as CUE expressions instead of hand-rolled Go
// validators. One cue.Context is shared across all cueSchema instances
// created through NewCueSchema since building a context is not free and
// cue.Value from different contexts cannot be unified.
var sharedCueContext = cuecontext.New()

type cueSchema struct {
	def string
	val cue.Value
}

// NewCueSchema compiles a CUE expression (e.g. `{name: string, age: int & >=0}`)
// into a Schema. Data passed to Validate is encoded as a CUE value and
// unified with the compiled definition; any unification or concreteness
// error becomes a validation issue.
func NewCueSchema(def string) (Schema, error) {
	val := sharedCueContext.CompileString(def)
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("pumped: invalid cue schema: %w", err)
	}
	return &cueSchema{def: def, val: val}, nil
}

func (s *cueSchema) Vendor() string  { return "cue" }
func (s *cueSchema) Version() string { return s.val.Path().String() }

func (s *cueSchema) Validate(data any) ValidationResult {
	dataVal := sharedCueContext.Encode(data)
	if err := dataVal.Err(); err != nil {
		return ValidationResult{Issues: []Issue{{Message: fmt.Sprintf("cue: cannot encode value: %v", err)}}}
	}

	unified := s.val.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		issues := make([]Issue, 0)
		for _, e := range errorList(err) {
			issues = append(issues, Issue{Message: e})
		}
		if len(issues) == 0 {
			issues = append(issues, Issue{Message: err.Error()})
		}
		return ValidationResult{Issues: issues}
	}

	return ValidationResult{Value: data}
}

// errorList flattens a cue/errors.Error chain (which implements the
// standard errors.Unwrap-able multi-error shape) into plain messages.
func errorList(err error) []string {
	type unwrapper interface{ Unwrap() []error }
	var out []string
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if u, ok := e.(unwrapper); ok {
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
			return
		}
		out = append(out, e.Error())
	}
	walk(err)
	return out
}
