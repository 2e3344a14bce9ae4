package pumped

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Scope is the resolution, cache, and lifecycle host for a dependency
// graph: every Resolve/Update/Release call against an executor happens
// within exactly one scope, and nothing is shared between scopes except
// the immutable *Executor[T] declarations themselves.
type Scope struct {
	mu                sync.RWMutex
	cache             sync.Map
	tags              sync.Map
	graph             *ReactiveGraph
	extensions        []Extension
	presets           map[AnyExecutor]preset
	cleanupRegistry   map[AnyExecutor][]cleanupEntry
	cleanupMu         sync.RWMutex
	execTree          *ExecutionTree
	disposed          atomic.Bool
	subMu             sync.Mutex
	subSeq            atomic.Uint64
	changeSubscribers map[uint64]func(AnyExecutor, any)
	updateSubscribers map[AnyExecutor]map[uint64]func(any)
}

type preset struct {
	value    any
	executor AnyExecutor
	isValue  bool
}

// ScopeOption configures a Scope at creation time.
type ScopeOption func(*Scope)

// WithScopeTag sets a tag directly on a scope, bypassing resolution.
func WithScopeTag[T any](tag Tag[T], val T) ScopeOption {
	return func(s *Scope) {
		_ = tag.SetOnScope(s, val)
	}
}

// WithExtension registers an extension on the scope at creation time.
func WithExtension(ext Extension) ScopeOption {
	return func(s *Scope) {
		if err := s.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// WithPreset overrides an executor's resolution within the scope, either
// with a fixed value or a replacement executor.
func WithPreset[T any](original *Executor[T], replacement any) ScopeOption {
	return func(s *Scope) {
		switch r := replacement.(type) {
		case T:
			s.presets[original] = preset{value: r, isValue: true}
		case *Executor[T]:
			s.presets[original] = preset{executor: r, isValue: false}
		default:
			panic(fmt.Sprintf("preset must be value of type %T or *Executor[%T]", *new(T), *new(T)))
		}
	}
}

// WithPresets applies Preset values built via PresetValue/PresetExecutor.
func WithPresets(presets ...Preset) ScopeOption {
	return func(s *Scope) {
		for _, p := range presets {
			s.presets[p.target] = preset{value: p.value, executor: p.replacement, isValue: p.isValue}
		}
	}
}

// NewScope creates a scope ready for resolution, with optional extensions,
// presets, and initial tags.
func NewScope(opts ...ScopeOption) *Scope {
	s := &Scope{
		graph:             NewReactiveGraph(),
		extensions:        []Extension{},
		presets:           make(map[AnyExecutor]preset),
		cleanupRegistry:   make(map[AnyExecutor][]cleanupEntry),
		execTree:          newExecutionTree(1000),
		changeSubscribers: make(map[uint64]func(AnyExecutor, any)),
		updateSubscribers: make(map[AnyExecutor]map[uint64]func(any)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Accessor returns a self-handle for exec, usable outside any factory to
// read, update, release, or reload its value within s.
func Accessor[T any](s *Scope, exec *Executor[T]) *Controller[T] {
	return &Controller[T]{executor: exec, scope: s}
}

// peekCache reads exec's cached value without resolving it.
func peekCache[T any](s *Scope, exec *Executor[T]) (T, bool) {
	val, ok := s.cache.Load(exec)
	if !ok {
		var zero T
		return zero, false
	}
	return val.(T), true
}

// resolveAny resolves a type-erased executor within s, registering reactive
// edges, applying presets, and running the extension pipeline. It is the
// single resolution path; Resolve[T] is a thin, type-safe wrapper over it.
// A fresh top-level resolve starts with no in-flight path.
func resolveAny(s *Scope, exec AnyExecutor) (any, error) {
	return resolveOnPath(s, exec, nil)
}

// resolveOnPath is resolveAny with the chain of executors currently being
// resolved by this same call tree threaded through, so a cyclic dependency
// graph (A -> B -> A) fails with DependencyResolutionError.Cycle instead of
// recursing without bound. path never aliases a caller's slice: each level
// appends into a fresh backing array.
func resolveOnPath(s *Scope, exec AnyExecutor, path []AnyExecutor) (any, error) {
	if s.disposed.Load() {
		return nil, &ScopeDisposedError{}
	}

	if val, ok := s.cache.Load(exec); ok {
		return val, nil
	}

	for _, inFlight := range path {
		if inFlight == exec {
			return nil, &DependencyResolutionError{Cycle: cyclePath(path, exec)}
		}
	}
	path = append(append(make([]AnyExecutor, 0, len(path)+1), path...), exec)

	m := exec.meta()

	for _, dep := range m.deps {
		if dep.GetMode() == ModeReactive {
			s.graph.AddDependency(exec, dep.GetExecutor())
		}
	}

	s.mu.RLock()
	p, hasPreset := s.presets[exec]
	exts := s.extensions
	s.mu.RUnlock()

	if hasPreset {
		if p.isValue {
			s.cache.Store(exec, p.value)
			return p.value, nil
		}
		val, err := resolveOnPath(s, p.executor, path)
		if err != nil {
			return nil, err
		}
		s.cache.Store(exec, val)
		return val, nil
	}

	for _, dep := range m.deps {
		if dep.GetMode() == ModeLazy {
			continue
		}
		if _, err := resolveOnPath(s, dep.GetExecutor(), path); err != nil {
			if cycleErr, ok := err.(*DependencyResolutionError); ok && len(cycleErr.Cycle) > 0 {
				return nil, cycleErr
			}
			return nil, &DependencyResolutionError{Cause: err}
		}
	}

	op := &Operation{Kind: OpResolve, Executor: exec, Scope: s}

	next := func() (any, error) {
		rc := &ResolveCtx{scope: s, executorID: exec}
		return exec.invoke(rc)
	}

	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) { return ext.Wrap(context.Background(), currentNext, op) }
	}

	result, err := next()
	if err != nil {
		for _, ext := range exts {
			ext.OnError(err, op, s)
		}
		return nil, &FactoryFailedError{Executor: m.name, Cause: err}
	}

	s.cache.Store(exec, result)
	return result, nil
}

// cyclePath renders the in-flight resolution chain plus the executor that
// closes the cycle, by declared name, for DependencyResolutionError.Cycle.
func cyclePath(path []AnyExecutor, closing AnyExecutor) []string {
	names := make([]string, 0, len(path)+1)
	for _, e := range path {
		names = append(names, e.DisplayName())
	}
	return append(names, closing.DisplayName())
}

// Resolve lazily resolves exec's value within s, caching the result. A
// force=true bypasses the cache and re-runs the factory, without evicting
// reactive dependents or running any cleanup (unlike Release/Reload).
func Resolve[T any](s *Scope, exec *Executor[T], force ...bool) (T, error) {
	if len(force) > 0 && force[0] {
		s.cache.Delete(exec)
	}
	val, err := resolveAny(s, exec)
	if err != nil {
		var zero T
		return zero, err
	}
	return SafeTypeAssertion[T](val)
}

// Update overwrites exec's cached value directly (without re-running its
// factory) and invalidates every reactive dependent, running their
// registered cleanups first. ctx is threaded through to every extension's
// Wrap, and is checked by the framework itself between each dependent's
// cleanup so a cancelled update stops making progress even with no
// extensions installed; cleanups already run are not rolled back.
func Update[T any](s *Scope, ctx context.Context, exec *Executor[T], newVal T) error {
	if s.disposed.Load() {
		return &ScopeDisposedError{}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.RLock()
	exts := s.extensions
	s.mu.RUnlock()

	op := &Operation{Kind: OpUpdate, Executor: exec, Scope: s}

	next := func() (any, error) {
		toInvalidate := s.findReactiveDependents(exec)

		for _, dependent := range toInvalidate {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			s.cleanupExecutor(dependent)
			s.cache.Delete(dependent)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		s.cleanupExecutor(exec)
		s.cache.Store(exec, newVal)
		s.fireUpdateSubscribers(exec, newVal)
		return nil, nil
	}

	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) { return ext.Wrap(ctx, currentNext, op) }
	}

	_, err := next()
	return err
}

// release runs the registered cleanups (LIFO per executor) of every
// transitive reactive dependent of exec and then of exec itself, and evicts
// all of their cached values. Unless soft is set, it also deregisters their
// onUpdate subscribers; a soft release leaves subscribers registered, so a
// later re-resolution through the same Controller keeps notifying them.
func (s *Scope) release(exec AnyExecutor, soft bool) error {
	dependents := s.findReactiveDependents(exec)

	for _, dependent := range dependents {
		s.cleanupExecutor(dependent)
		s.cache.Delete(dependent)
		if !soft {
			s.clearUpdateSubscribers(dependent)
		}
	}

	s.cleanupExecutor(exec)
	s.cache.Delete(exec)
	if !soft {
		s.clearUpdateSubscribers(exec)
	}
	return nil
}

// registerCleanup appends fn to exec's LIFO cleanup stack.
func (s *Scope) registerCleanup(exec AnyExecutor, fn func()) {
	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()
	s.cleanupRegistry[exec] = append(s.cleanupRegistry[exec], cleanupEntry{
		fn: func() error {
			fn()
			return nil
		},
	})
}

// findReactiveDependents returns every executor transitively dependent on
// exec through a reactive edge, via the scope's ReactiveGraph.
func (s *Scope) findReactiveDependents(exec AnyExecutor) []AnyExecutor {
	return s.graph.FindDependents(exec)
}

// OnChange registers cb to run after every successful Update call against
// any executor in s, receiving the executor updated and its new value.
// Returns a callback that deregisters cb.
func (s *Scope) OnChange(cb func(AnyExecutor, any)) func() {
	id := s.subSeq.Add(1)
	s.subMu.Lock()
	s.changeSubscribers[id] = cb
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.changeSubscribers, id)
		s.subMu.Unlock()
	}
}

// OnUpdate registers cb to run after every successful Update call against
// exec specifically, receiving its new value. Returns a callback that
// deregisters cb.
func (s *Scope) OnUpdate(exec AnyExecutor, cb func(any)) func() {
	id := s.subSeq.Add(1)
	s.subMu.Lock()
	if s.updateSubscribers[exec] == nil {
		s.updateSubscribers[exec] = make(map[uint64]func(any))
	}
	s.updateSubscribers[exec][id] = cb
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		if subs, ok := s.updateSubscribers[exec]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(s.updateSubscribers, exec)
			}
		}
		s.subMu.Unlock()
	}
}

// fireUpdateSubscribers runs every OnChange subscriber followed by every
// OnUpdate subscriber registered for exec, synchronously on the caller's
// own goroutine (see DESIGN.md's subscriber-timing resolution).
func (s *Scope) fireUpdateSubscribers(exec AnyExecutor, newVal any) {
	s.subMu.Lock()
	changeSubs := make([]func(AnyExecutor, any), 0, len(s.changeSubscribers))
	for _, cb := range s.changeSubscribers {
		changeSubs = append(changeSubs, cb)
	}
	var updateSubs []func(any)
	if subs, ok := s.updateSubscribers[exec]; ok {
		updateSubs = make([]func(any), 0, len(subs))
		for _, cb := range subs {
			updateSubs = append(updateSubs, cb)
		}
	}
	s.subMu.Unlock()

	for _, cb := range changeSubs {
		cb(exec, newVal)
	}
	for _, cb := range updateSubs {
		cb(newVal)
	}
}

func (s *Scope) clearUpdateSubscribers(exec AnyExecutor) {
	s.subMu.Lock()
	delete(s.updateSubscribers, exec)
	s.subMu.Unlock()
}

// UseExtension registers ext on the scope, re-sorting by Order, then runs
// its Init hook.
func (s *Scope) UseExtension(ext Extension) error {
	s.mu.Lock()
	s.extensions = append(s.extensions, ext)
	sort.SliceStable(s.extensions, func(i, j int) bool {
		return s.extensions[i].Order() < s.extensions[j].Order()
	})
	s.mu.Unlock()

	return ext.Init(s)
}

func (s *Scope) cleanupExecutor(exec AnyExecutor) {
	s.cleanupMu.Lock()
	entries := s.cleanupRegistry[exec]
	delete(s.cleanupRegistry, exec)
	s.cleanupMu.Unlock()

	if len(entries) == 0 {
		return
	}
	s.runCleanups(entries, exec, "reactive")
}

func (s *Scope) runCleanups(entries []cleanupEntry, exec AnyExecutor, cleanupContext string) {
	s.mu.RLock()
	exts := make([]Extension, len(s.extensions))
	copy(exts, s.extensions)
	s.mu.RUnlock()

	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]

		if err := entry.fn(); err != nil {
			cleanupErr := &CleanupError{ExecutorID: exec, Err: err, Context: cleanupContext}

			handled := false
			for _, ext := range exts {
				if ext.OnCleanupError(cleanupErr) {
					handled = true
					break
				}
			}
			if !handled {
				s.reportReleaseError(exec, err)
			}
		}
	}
}

func (s *Scope) reportReleaseError(exec AnyExecutor, err error) {
	// No extension claimed the failure; surface it via the scope's own
	// release-error tag so an owning caller can poll for it without needing
	// a dedicated extension just to observe cleanup failures.
	existing, _ := s.GetTag(releaseErrorTag.Key())
	var agg *ReleaseError
	if e, ok := existing.(*ReleaseError); ok {
		agg = e
	} else {
		agg = &ReleaseError{Executor: exec.meta().name}
	}
	agg.Causes = append(agg.Causes, err)
	s.SetTag(releaseErrorTag.Key(), agg)
}

var releaseErrorTag = NewTag[any]("scope.release_errors")

// Dispose runs every registered cleanup, LIFO within each executor; the
// order across executors is not defined. It then disposes every extension
// in reverse of their Order-sorted sequence, stopping at the first
// extension error. Once disposed, a scope rejects all further resolution
// and update calls.
func (s *Scope) Dispose() error {
	if !s.disposed.CompareAndSwap(false, true) {
		return nil
	}

	s.cleanupMu.Lock()
	type pending struct {
		exec    AnyExecutor
		entries []cleanupEntry
	}
	allEntries := make([]pending, 0, len(s.cleanupRegistry))
	for exec, entries := range s.cleanupRegistry {
		allEntries = append(allEntries, pending{exec, entries})
	}
	s.cleanupRegistry = make(map[AnyExecutor][]cleanupEntry)
	s.cleanupMu.Unlock()

	for i := len(allEntries) - 1; i >= 0; i-- {
		s.runCleanups(allEntries[i].entries, allEntries[i].exec, "dispose")
	}

	s.mu.RLock()
	exts := make([]Extension, len(s.extensions))
	copy(exts, s.extensions)
	s.mu.RUnlock()

	for i := len(exts) - 1; i >= 0; i-- {
		if err := exts[i].Dispose(s); err != nil {
			return fmt.Errorf("disposing extension %s: %w", exts[i].Name(), err)
		}
	}

	return nil
}

// GetTag retrieves a tag value from the scope's own tag store.
func (s *Scope) GetTag(tag any) (any, bool) {
	return s.tags.Load(tag)
}

// SetTag stores a tag value on the scope's own tag store.
func (s *Scope) SetTag(tag any, val any) {
	s.tags.Store(tag, val)
}

// GetExecutionTree returns the bounded record of flow executions run
// against this scope.
func (s *Scope) GetExecutionTree() *ExecutionTree {
	return s.execTree
}

// ExportDependencyGraph returns a snapshot of the reactive downstream
// graph, parent executor to its reactive dependents, for diagnostics.
func (s *Scope) ExportDependencyGraph() map[AnyExecutor][]AnyExecutor {
	return s.graph.Snapshot()
}

func (s *Scope) generateExecutionID() string {
	return uuid.NewString()
}

// Exec runs a root flow against s under ctx, returning its result and the
// execution context tree node produced. An optional input value is stashed
// under the input tag before the factory runs, for flows defined via
// DefineFlow.
func Exec[R any](s *Scope, ctx context.Context, flow *Flow[R], input ...any) (R, *ExecutionCtx, error) {
	var zero R

	if s.disposed.Load() {
		return zero, nil, &ScopeDisposedError{}
	}

	select {
	case <-ctx.Done():
		execCtx := s.newRootExecutionCtx(ctx)
		execCtx.Set(endTimeTag, time.Now())
		execCtx.Set(statusTag, ExecutionStatusCancelled)
		execCtx.Set(errorTag, ctx.Err())
		return zero, execCtx, &AbortedError{Reason: "context cancelled before start", Cause: ctx.Err()}
	default:
	}

	for _, dep := range flow.deps {
		if dep.GetMode() == ModeLazy {
			continue
		}
		select {
		case <-ctx.Done():
			execCtx := s.newRootExecutionCtx(ctx)
			execCtx.Set(endTimeTag, time.Now())
			execCtx.Set(statusTag, ExecutionStatusCancelled)
			execCtx.Set(errorTag, ctx.Err())
			return zero, execCtx, &AbortedError{Reason: "context cancelled during dependency resolution", Cause: ctx.Err()}
		default:
		}
		if _, err := resolveAny(s, dep.GetExecutor()); err != nil {
			return zero, nil, fmt.Errorf("resolving dependency: %w", err)
		}
	}

	execCtx := s.newRootExecutionCtx(ctx)

	if name, ok := flow.GetTag(flowNameTag); ok {
		execCtx.Set(flowNameTag, name)
	}
	if len(input) > 0 {
		execCtx.Set(inputTag, input[0])
	}

	execCtx.Set(startTimeTag, time.Now())
	execCtx.Set(statusTag, ExecutionStatusRunning)

	s.mu.RLock()
	exts := make([]Extension, len(s.extensions))
	copy(exts, s.extensions)
	s.mu.RUnlock()

	for _, ext := range exts {
		if err := ext.OnFlowStart(execCtx, flow); err != nil {
			execCtx.Set(statusTag, ExecutionStatusFailed)
			execCtx.Set(errorTag, err)
			return zero, execCtx, err
		}
	}

	select {
	case <-ctx.Done():
		execCtx.Set(endTimeTag, time.Now())
		execCtx.Set(statusTag, ExecutionStatusCancelled)
		execCtx.Set(errorTag, ctx.Err())
		return zero, execCtx, ctx.Err()
	default:
	}

	result, err := executeFlow(execCtx, flow)

	execCtx.Set(endTimeTag, time.Now())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			execCtx.Set(statusTag, ExecutionStatusCancelled)
		} else {
			execCtx.Set(statusTag, ExecutionStatusFailed)
		}
		execCtx.Set(errorTag, err)
	} else {
		execCtx.Set(statusTag, ExecutionStatusSuccess)
		execCtx.Set(outputTag, result)
	}

	for i := len(exts) - 1; i >= 0; i-- {
		if extErr := exts[i].OnFlowEnd(execCtx, result, err); extErr != nil && err == nil {
			err = extErr
		}
	}

	node := execCtx.finalize()
	s.execTree.addNode(node)

	return result, execCtx, err
}

func (s *Scope) newRootExecutionCtx(ctx context.Context) *ExecutionCtx {
	return &ExecutionCtx{
		id:      s.generateExecutionID(),
		parent:  nil,
		scope:   s,
		data:    make(map[any]any),
		ctx:     ctx,
		depth:   0,
		journal: newExecutionJournal(),
	}
}
