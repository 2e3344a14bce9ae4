package pumped

// Derive1 declares an executor with one dependency.
func Derive1[T any, D1 any](
	d1 Dependency,
	factory func(*ResolveCtx, *Dep[D1], *Controller[T]) (T, error),
	opts ...ExecutorOption,
) *Executor[T] {
	e := &Executor[T]{m: newExecMeta(DependencyShape{Kind: ShapeSingle}, []Dependency{d1})}
	e.factory = func(rc *ResolveCtx, ctrl *Controller[T]) (T, error) {
		dep1 := &Dep[D1]{executor: d1.GetExecutor().(*Executor[D1]), scope: rc.scope}
		return factory(rc, dep1, ctrl)
	}
	applyOpts(e.m, opts)
	return e
}

// Derive2 declares an executor with two dependencies.
func Derive2[T any, D1, D2 any](
	d1, d2 Dependency,
	factory func(*ResolveCtx, *Dep[D1], *Dep[D2], *Controller[T]) (T, error),
	opts ...ExecutorOption,
) *Executor[T] {
	e := &Executor[T]{m: newExecMeta(DependencyShape{Kind: ShapeSequence}, []Dependency{d1, d2})}
	e.factory = func(rc *ResolveCtx, ctrl *Controller[T]) (T, error) {
		dep1 := &Dep[D1]{executor: d1.GetExecutor().(*Executor[D1]), scope: rc.scope}
		dep2 := &Dep[D2]{executor: d2.GetExecutor().(*Executor[D2]), scope: rc.scope}
		return factory(rc, dep1, dep2, ctrl)
	}
	applyOpts(e.m, opts)
	return e
}

// Derive3 declares an executor with three dependencies.
func Derive3[T any, D1, D2, D3 any](
	d1, d2, d3 Dependency,
	factory func(*ResolveCtx, *Dep[D1], *Dep[D2], *Dep[D3], *Controller[T]) (T, error),
	opts ...ExecutorOption,
) *Executor[T] {
	e := &Executor[T]{m: newExecMeta(DependencyShape{Kind: ShapeSequence}, []Dependency{d1, d2, d3})}
	e.factory = func(rc *ResolveCtx, ctrl *Controller[T]) (T, error) {
		dep1 := &Dep[D1]{executor: d1.GetExecutor().(*Executor[D1]), scope: rc.scope}
		dep2 := &Dep[D2]{executor: d2.GetExecutor().(*Executor[D2]), scope: rc.scope}
		dep3 := &Dep[D3]{executor: d3.GetExecutor().(*Executor[D3]), scope: rc.scope}
		return factory(rc, dep1, dep2, dep3, ctrl)
	}
	applyOpts(e.m, opts)
	return e
}

// Derive4 declares an executor with four dependencies.
func Derive4[T any, D1, D2, D3, D4 any](
	d1, d2, d3, d4 Dependency,
	factory func(*ResolveCtx, *Dep[D1], *Dep[D2], *Dep[D3], *Dep[D4], *Controller[T]) (T, error),
	opts ...ExecutorOption,
) *Executor[T] {
	e := &Executor[T]{m: newExecMeta(DependencyShape{Kind: ShapeSequence}, []Dependency{d1, d2, d3, d4})}
	e.factory = func(rc *ResolveCtx, ctrl *Controller[T]) (T, error) {
		dep1 := &Dep[D1]{executor: d1.GetExecutor().(*Executor[D1]), scope: rc.scope}
		dep2 := &Dep[D2]{executor: d2.GetExecutor().(*Executor[D2]), scope: rc.scope}
		dep3 := &Dep[D3]{executor: d3.GetExecutor().(*Executor[D3]), scope: rc.scope}
		dep4 := &Dep[D4]{executor: d4.GetExecutor().(*Executor[D4]), scope: rc.scope}
		return factory(rc, dep1, dep2, dep3, dep4, ctrl)
	}
	applyOpts(e.m, opts)
	return e
}

// Derive5 declares an executor with five dependencies.
func Derive5[T any, D1, D2, D3, D4, D5 any](
	d1, d2, d3, d4, d5 Dependency,
	factory func(*ResolveCtx, *Dep[D1], *Dep[D2], *Dep[D3], *Dep[D4], *Dep[D5], *Controller[T]) (T, error),
	opts ...ExecutorOption,
) *Executor[T] {
	e := &Executor[T]{m: newExecMeta(DependencyShape{Kind: ShapeSequence}, []Dependency{d1, d2, d3, d4, d5})}
	e.factory = func(rc *ResolveCtx, ctrl *Controller[T]) (T, error) {
		dep1 := &Dep[D1]{executor: d1.GetExecutor().(*Executor[D1]), scope: rc.scope}
		dep2 := &Dep[D2]{executor: d2.GetExecutor().(*Executor[D2]), scope: rc.scope}
		dep3 := &Dep[D3]{executor: d3.GetExecutor().(*Executor[D3]), scope: rc.scope}
		dep4 := &Dep[D4]{executor: d4.GetExecutor().(*Executor[D4]), scope: rc.scope}
		dep5 := &Dep[D5]{executor: d5.GetExecutor().(*Executor[D5]), scope: rc.scope}
		return factory(rc, dep1, dep2, dep3, dep4, dep5, ctrl)
	}
	applyOpts(e.m, opts)
	return e
}
