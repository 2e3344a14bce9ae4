package pumped

import "context"

// Dep is a factory's handle on one resolved dependency: its current value,
// plus the ability to peek at a cached value without forcing resolution.
// It is distinct from Controller, which exposes operations on the
// executor currently being resolved (self), not on a dependency.
type Dep[T any] struct {
	executor *Executor[T]
	scope    *Scope
}

// Get returns the dependency's latest value, resolving it if not cached.
func (d *Dep[T]) Get() (T, error) {
	return Resolve(d.scope, d.executor)
}

// Peek returns the dependency's cached value without resolving it, reporting
// false if nothing is cached yet.
func (d *Dep[T]) Peek() (T, bool) {
	val, ok := d.scope.cache.Load(d.executor)
	if !ok {
		var zero T
		return zero, false
	}
	return val.(T), true
}

// IsCached reports whether the dependency currently has a cached value.
func (d *Dep[T]) IsCached() bool {
	_, ok := d.scope.cache.Load(d.executor)
	return ok
}

// Controller is the self-referential handle a factory receives: the
// ability to register cleanup, request its own re-resolution, release its
// cached entry, update its value directly, and read the scope it is
// resolving within.
type Controller[T any] struct {
	executor *Executor[T]
	scope    *Scope
}

// Scope returns the scope this executor is resolving within.
func (c *Controller[T]) Scope() *Scope { return c.scope }

// Get returns the executor's latest value, resolving it if not cached.
func (c *Controller[T]) Get() (T, error) {
	return Resolve(c.scope, c.executor)
}

// Peek returns the cached value without resolving, reporting false if
// nothing is cached yet.
func (c *Controller[T]) Peek() (T, bool) {
	val, ok := c.scope.cache.Load(c.executor)
	if !ok {
		var zero T
		return zero, false
	}
	return val.(T), true
}

// Update sets a new value directly and propagates to reactive dependents,
// without re-running the factory. ctx bounds the cleanup cascade this
// triggers in dependents; a cancelled ctx stops further propagation but
// does not undo cleanups already run.
func (c *Controller[T]) Update(ctx context.Context, newVal T) error {
	return Update(c.scope, ctx, c.executor, newVal)
}

// Cleanup registers fn to run, in LIFO order with other registered
// cleanups for this executor, when the executor is released, reloaded, or
// the scope is disposed.
func (c *Controller[T]) Cleanup(fn func()) {
	c.scope.registerCleanup(c.executor, fn)
}

// Release evicts this executor's cached value from the scope, running its
// registered cleanups, and recursively releases reactive dependents. Unless
// soft is set, the accessor's onUpdate subscribers are also deregistered;
// soft release keeps them, so a later Reload/Get continues notifying the
// same Subscribe callbacks.
func (c *Controller[T]) Release(soft ...bool) error {
	return c.scope.release(c.executor, len(soft) > 0 && soft[0])
}

// Subscribe registers cb to run with this executor's new value after every
// Update call against it, however it was made (another Controller handle for
// the same executor, or Scope.OnUpdate directly). Returns a callback that
// deregisters cb.
func (c *Controller[T]) Subscribe(cb func(T)) func() {
	return c.scope.OnUpdate(c.executor, func(val any) {
		if typed, ok := val.(T); ok {
			cb(typed)
		}
	})
}

// Reload releases this executor's cached value, then immediately
// re-resolves it by re-running the factory, returning the new value.
func (c *Controller[T]) Reload() (T, error) {
	if err := c.Release(); err != nil {
		var zero T
		return zero, err
	}
	return c.Get()
}

// IsCached reports whether this executor currently has a cached value.
func (c *Controller[T]) IsCached() bool {
	_, ok := c.scope.cache.Load(c.executor)
	return ok
}
