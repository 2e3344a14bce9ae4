package pumped

import "sync/atomic"

// DependencyMode controls how a dependency is delivered to a consuming
// executor: eagerly resolved and cached (the default), deferred until
// explicitly read (Lazy), eagerly resolved and re-delivered on update
// (Reactive), or eagerly resolved but excluded from reactive propagation
// (Static).
type DependencyMode int

const (
	ModeDefault DependencyMode = iota
	ModeLazy
	ModeReactive
	ModeStatic
)

// Dependency is a request for another executor's value, carrying the mode
// the requester wants it delivered in. *Executor[T] itself satisfies
// Dependency with ModeDefault; .Lazy()/.Reactive()/.Static() produce the
// other modes.
type Dependency interface {
	GetExecutor() AnyExecutor
	GetMode() DependencyMode
}

type modifiedDependency struct {
	target AnyExecutor
	mode   DependencyMode
}

func (d modifiedDependency) GetExecutor() AnyExecutor { return d.target }
func (d modifiedDependency) GetMode() DependencyMode  { return d.mode }

// ShapeKind names the four dependency shapes an executor may declare, per
// the data model: none, a single executor, an ordered sequence, or a
// label-to-executor mapping.
type ShapeKind int

const (
	ShapeNone ShapeKind = iota
	ShapeSingle
	ShapeSequence
	ShapeMapping
)

// DependencyShape is the static description of an executor's dependencies,
// recorded at creation time.
type DependencyShape struct {
	Kind   ShapeKind
	Labels []string // parallel to the flattened deps slice, populated for ShapeMapping
}

// Analysis is the executor's static-analysis metadata. The source languages
// this core is ported from can parse a factory's source and emit an
// optimized trampoline that skips destructuring; Go has no equivalent
// runtime access to a function's source, so SkipReason is always populated
// and the compiled factory is always the original one.
type Analysis struct {
	IsAsync                bool
	UsesCleanup            bool
	UsesRelease            bool
	UsesReload             bool
	UsesScope              bool
	DependencyShape        ShapeKind
	AccessedDependencyKeys []string
	SkipReason             string
}

const analysisSkipReason = "source analysis is unavailable in Go; the compiled factory is the original trampoline"

// TaggedValue pairs a tag's key with a value, attached to an executor at
// declaration time via WithTag.
type TaggedValue struct {
	Key   any
	Value any
}

var execIDCounter atomic.Uint64

// execMeta is the type-erased half of an executor: everything the scope
// needs to resolve, cache, and introspect it without knowing T.
type execMeta struct {
	ordinal uint64
	name    string
	shape   DependencyShape
	deps    []Dependency
	tags    []TaggedValue
	analysis Analysis
}

func newExecMeta(shape DependencyShape, deps []Dependency) *execMeta {
	return &execMeta{
		ordinal: execIDCounter.Add(1),
		shape:   shape,
		deps:    deps,
		analysis: Analysis{
			UsesCleanup:     true,
			UsesRelease:     true,
			UsesReload:      true,
			UsesScope:       true,
			DependencyShape: shape.Kind,
			SkipReason:      analysisSkipReason,
		},
	}
}

// AnyExecutor is the type-erased view of *Executor[T], used everywhere the
// scope, extensions, and diagnostics need to hold executors of different
// result types in the same map or slice.
type AnyExecutor interface {
	meta() *execMeta
	invoke(rc *ResolveCtx) (any, error)
	// DisplayName returns the executor's declared name, or "" if unnamed.
	DisplayName() string
}

// Executor is the immutable description of how to produce a value of type
// T: a factory, a dependency shape, and declaration-time tags.
type Executor[T any] struct {
	m       *execMeta
	factory func(*ResolveCtx, *Controller[T]) (T, error)
}

func (e *Executor[T]) meta() *execMeta { return e.m }

func (e *Executor[T]) invoke(rc *ResolveCtx) (any, error) {
	ctrl := &Controller[T]{scope: rc.scope, executor: e}
	return e.factory(rc, ctrl)
}

// GetExecutor implements Dependency for a bare *Executor[T] (ModeDefault).
func (e *Executor[T]) GetExecutor() AnyExecutor { return e }

// GetMode implements Dependency for a bare *Executor[T] (ModeDefault).
func (e *Executor[T]) GetMode() DependencyMode { return ModeDefault }

// Name returns the executor's declared name, if any (see WithName).
func (e *Executor[T]) Name() string { return e.m.name }

// DisplayName implements AnyExecutor.
func (e *Executor[T]) DisplayName() string { return e.m.name }

// Lazy requests the target without forcing resolution; within another
// executor's dependency list this skips eager resolution.
func (e *Executor[T]) Lazy() Dependency { return modifiedDependency{e, ModeLazy} }

// Reactive requests the target and registers the consumer as a reactive
// dependent, invalidated on every update to the target.
func (e *Executor[T]) Reactive() Dependency { return modifiedDependency{e, ModeReactive} }

// Static requests the target resolved once, explicitly excluded from
// reactive propagation.
func (e *Executor[T]) Static() Dependency { return modifiedDependency{e, ModeStatic} }

// ExecutorOption configures an executor at creation time.
type ExecutorOption func(*execMeta)

// WithName attaches a diagnostic name to an executor, used by error
// messages, the dependency graph, and extensions.
func WithName(name string) ExecutorOption {
	return func(m *execMeta) { m.name = name }
}

// WithTag attaches a declaration-time tag/value pair to an executor.
func WithTag[T any](tag Tag[T], value T) ExecutorOption {
	return func(m *execMeta) {
		m.tags = append(m.tags, TaggedValue{Key: tag.Key(), Value: value})
	}
}

func applyOpts(m *execMeta, opts []ExecutorOption) {
	for _, opt := range opts {
		opt(m)
	}
}

// Provide declares a leaf executor: no dependencies.
func Provide[T any](factory func(*ResolveCtx, *Controller[T]) (T, error), opts ...ExecutorOption) *Executor[T] {
	e := &Executor[T]{m: newExecMeta(DependencyShape{Kind: ShapeNone}, nil), factory: factory}
	applyOpts(e.m, opts)
	return e
}

// DeriveSlice declares an executor depending on an ordered, homogeneously
// typed sequence of executors (the "sequence" dependency shape).
func DeriveSlice[T, D any](deps []Dependency, factory func(*ResolveCtx, []*Dep[D], *Controller[T]) (T, error), opts ...ExecutorOption) *Executor[T] {
	e := &Executor[T]{m: newExecMeta(DependencyShape{Kind: ShapeSequence}, deps)}
	e.factory = func(rc *ResolveCtx, ctrl *Controller[T]) (T, error) {
		typedDeps := make([]*Dep[D], len(deps))
		for i, d := range deps {
			typedDeps[i] = &Dep[D]{executor: d.GetExecutor().(*Executor[D]), scope: rc.scope}
		}
		return factory(rc, typedDeps, ctrl)
	}
	applyOpts(e.m, opts)
	return e
}

// DeriveMap declares an executor depending on a label-to-executor mapping
// (the "mapping" dependency shape), with deterministic label ordering.
func DeriveMap[T, D any](deps map[string]Dependency, factory func(*ResolveCtx, map[string]*Dep[D], *Controller[T]) (T, error), opts ...ExecutorOption) *Executor[T] {
	labels := make([]string, 0, len(deps))
	for label := range deps {
		labels = append(labels, label)
	}
	sortStrings(labels)

	flattened := make([]Dependency, len(labels))
	for i, label := range labels {
		flattened[i] = deps[label]
	}

	e := &Executor[T]{m: newExecMeta(DependencyShape{Kind: ShapeMapping, Labels: labels}, flattened)}
	e.factory = func(rc *ResolveCtx, ctrl *Controller[T]) (T, error) {
		typedDeps := make(map[string]*Dep[D], len(deps))
		for label, d := range deps {
			typedDeps[label] = &Dep[D]{executor: d.GetExecutor().(*Executor[D]), scope: rc.scope}
		}
		return factory(rc, typedDeps, ctrl)
	}
	applyOpts(e.m, opts)
	return e
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Preset overrides an executor's resolution within a scope, either with a
// static value or a replacement executor, applied before first resolution.
type Preset struct {
	target      AnyExecutor
	value       any
	isValue     bool
	replacement AnyExecutor
}

// PresetValue overrides exec's resolution with a fixed value; exec's factory
// is never invoked in a scope carrying this preset.
func PresetValue[T any](exec *Executor[T], value T) Preset {
	return Preset{target: exec, value: value, isValue: true}
}

// PresetExecutor overrides exec's resolution with replacement; replacement is
// resolved in exec's place.
func PresetExecutor[T any](exec *Executor[T], replacement *Executor[T]) Preset {
	return Preset{target: exec, replacement: replacement, isValue: false}
}
