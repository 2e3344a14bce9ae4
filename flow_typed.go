package pumped

import "context"

// FlowDef is a schema-validated request handler: input is checked against
// inputSchema before the handler runs, output against outputSchema after.
// It wraps the lower-level Flow[O], which carries the dependency list,
// tags, and cancellation-aware execution machinery.
type FlowDef[I, O any] struct {
	inner        *Flow[O]
	inputSchema  Schema
	outputSchema Schema
}

// FlowDefOption configures a FlowDef at creation time.
type FlowDefOption[I, O any] func(*FlowDef[I, O])

// WithInputSchema validates every input against schema before the handler runs.
func WithInputSchema[I, O any](schema Schema) FlowDefOption[I, O] {
	return func(f *FlowDef[I, O]) { f.inputSchema = schema }
}

// WithOutputSchema validates every output against schema after the handler runs.
func WithOutputSchema[I, O any](schema Schema) FlowDefOption[I, O] {
	return func(f *FlowDef[I, O]) { f.outputSchema = schema }
}

// WithFlowName names the flow for diagnostics and the OnFlowStart/OnFlowEnd hooks.
func WithFlowName[I, O any](name string) FlowDefOption[I, O] {
	return func(f *FlowDef[I, O]) { f.inner.SetTag(flowNameTag, name) }
}

// WithDeps declares the flow's static dependencies, resolved before the
// handler runs (subject to each Dependency's mode).
func WithDeps[I, O any](deps ...Dependency) FlowDefOption[I, O] {
	return func(f *FlowDef[I, O]) { f.inner.deps = deps }
}

// DefineFlow declares a schema-validated handler from input I to output O.
func DefineFlow[I, O any](handler func(*ExecutionCtx, *ResolveCtx, I) (O, error), opts ...FlowDefOption[I, O]) *FlowDef[I, O] {
	f := &FlowDef[I, O]{inner: &Flow[O]{tags: make(map[any]any)}}

	f.inner.factory = func(e *ExecutionCtx, rc *ResolveCtx) (O, error) {
		var zero O
		raw, _ := e.Get(inputTag)
		input, _ := raw.(I)

		if f.inputSchema != nil {
			validated, err := validate(f.inputSchema, input)
			if err != nil {
				return zero, err
			}
			if typed, ok := validated.(I); ok {
				input = typed
			}
		}

		output, err := handler(e, rc, input)
		if err != nil {
			return zero, err
		}

		if f.outputSchema != nil {
			validated, err := validate(f.outputSchema, output)
			if err != nil {
				return zero, err
			}
			if typed, ok := validated.(O); ok {
				return typed, nil
			}
		}
		return output, nil
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run validates input, executes the flow as the root of a new execution,
// and validates the output, returning the execution context tree node
// produced alongside the result.
func Run[I, O any](s *Scope, ctx context.Context, def *FlowDef[I, O], input I) (O, *ExecutionCtx, error) {
	return Exec[O](s, ctx, def.inner, input)
}

// AsFlow exposes the untyped Flow backing def, for nesting within Child or
// Parallel from another flow's handler.
func (f *FlowDef[I, O]) AsFlow() *Flow[O] { return f.inner }
