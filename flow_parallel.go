package pumped

import (
	"errors"
	"fmt"
	"sync"
)

// Child runs flow as a nested execution under e: a new ExecutionCtx is
// created with e as parent, sharing e's cancellation context, and recorded
// as a child node in the scope's execution tree. When key is given, it
// joins the same per-root journal Exec1 uses: the first caller for that key
// runs flow, later callers for the same key within the same root execution
// replay its recorded outcome instead.
func (e *ExecutionCtx) Child(flow AnyFlow, key ...string) (result any, ctxOut *ExecutionCtx, err error) {
	select {
	case <-e.ctx.Done():
		err = &AbortedError{Reason: "parent context done", Cause: e.ctx.Err()}
		return
	default:
	}

	for _, dep := range flow.GetDeps() {
		if dep.GetMode() == ModeLazy {
			continue
		}
		if _, depErr := resolveAny(e.scope, dep.GetExecutor()); depErr != nil {
			err = fmt.Errorf("resolving dependency: %w", depErr)
			return
		}
	}

	childCtx := &ExecutionCtx{
		id:      e.scope.generateExecutionID(),
		parent:  e,
		scope:   e.scope,
		data:    make(map[any]any),
		ctx:     e.ctx,
		depth:   e.depth + 1,
		journal: e.journal,
	}
	ctxOut = childCtx

	if name, ok := flow.GetTag(flowNameTag); ok {
		childCtx.Set(flowNameTag, name)
	}
	childCtx.Set(statusTag, ExecutionStatusRunning)

	var entry *journalEntry
	var owner bool
	if len(key) > 0 && key[0] != "" {
		journalKey := journalKeyFor(e, key[0])
		entry, owner = e.journal.claim(journalKey)
		if !owner {
			select {
			case <-entry.done:
				result, err = entry.result, entry.err
			case <-e.ctx.Done():
				err = &AbortedError{Reason: "parent context done", Cause: e.ctx.Err()}
			}

			if err != nil {
				childCtx.Set(statusTag, ExecutionStatusFailed)
				childCtx.Set(errorTag, err)
			} else {
				childCtx.Set(statusTag, ExecutionStatusSuccess)
				childCtx.Set(outputTag, result)
			}

			node := childCtx.finalize()
			e.scope.execTree.addNode(node)
			return
		}
	}

	result, err = flow.ExecuteAny(childCtx)

	if owner {
		defer func() { entry.finish(result, err) }()
	}

	if err != nil {
		if errors.Is(err, ErrAborted) {
			childCtx.Set(statusTag, ExecutionStatusCancelled)
		} else {
			childCtx.Set(statusTag, ExecutionStatusFailed)
		}
		childCtx.Set(errorTag, err)
	} else {
		childCtx.Set(statusTag, ExecutionStatusSuccess)
		childCtx.Set(outputTag, result)
	}

	node := childCtx.finalize()
	e.scope.execTree.addNode(node)

	return
}

// ErrAborted is the sentinel matched by errors.Is to recognize a cascaded
// cancellation, regardless of which AbortedError instance carries it.
var ErrAborted = errors.New("pumped: aborted")

func (e *AbortedError) Is(target error) bool { return target == ErrAborted }

// parallelJob is one unit of work submitted to a ParallelExecutor, paired
// with a label used to report which job produced which result or error.
type parallelJob struct {
	label string
	run   func(*ExecutionCtx) (any, error)
}

// Run runs flows concurrently, one nested ExecutionCtx each, and returns
// their results in submission order. Every job runs to completion in both
// modes; a failing job does not cancel the others. In FailFast mode Run
// returns the first error in submission order; in CollectErrors mode all
// errors are joined.
func (pe *ParallelExecutor) Run(flows ...AnyFlow) ([]any, error) {
	jobs := make([]parallelJob, len(flows))
	for i, f := range flows {
		flow := f
		jobs[i] = parallelJob{
			label: fmt.Sprintf("flow[%d]", i),
			run: func(ctx *ExecutionCtx) (any, error) {
				result, _, err := ctx.Child(flow)
				return result, err
			},
		}
	}
	return pe.run(jobs)
}

// RunFuncs runs arbitrary functions of the parent ExecutionCtx concurrently,
// for callers composing ad hoc work rather than whole flows.
func (pe *ParallelExecutor) RunFuncs(fns ...func(*ExecutionCtx) (any, error)) ([]any, error) {
	jobs := make([]parallelJob, len(fns))
	for i, fn := range fns {
		jobs[i] = parallelJob{label: fmt.Sprintf("func[%d]", i), run: fn}
	}
	return pe.run(jobs)
}

func (pe *ParallelExecutor) run(jobs []parallelJob) ([]any, error) {
	results := make([]any, len(jobs))
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	wg.Add(len(jobs))

	for i, job := range jobs {
		i, job := i, job
		go func() {
			defer wg.Done()
			results[i], errs[i] = job.run(pe.ctx)
		}()
	}
	wg.Wait()

	var joined []error
	for i, err := range errs {
		if err != nil {
			joined = append(joined, fmt.Errorf("%s: %w", jobs[i].label, err))
			if pe.errorMode == ErrorModeFailFast {
				return results, joined[0]
			}
		}
	}
	if len(joined) > 0 {
		return results, errors.Join(joined...)
	}
	return results, nil
}

// SettledResult is one job's outcome from a settled parallel run: exactly
// one of Value or Err is meaningful, matching which of the two occurred.
type SettledResult struct {
	Value any
	Err   error
}

// ParallelStats summarizes a settled parallel run's outcomes.
type ParallelStats struct {
	Total     int
	Fulfilled int
	Rejected  int
}

// RunSettled runs flows concurrently, one nested ExecutionCtx each, and
// waits for every one regardless of failure: unlike Run, it never returns a
// top-level error, reporting each job's own outcome in the returned slice
// plus an aggregate count of fulfilled versus rejected jobs.
func (pe *ParallelExecutor) RunSettled(flows ...AnyFlow) ([]SettledResult, ParallelStats) {
	jobs := make([]parallelJob, len(flows))
	for i, f := range flows {
		flow := f
		jobs[i] = parallelJob{
			label: fmt.Sprintf("flow[%d]", i),
			run: func(ctx *ExecutionCtx) (any, error) {
				result, _, err := ctx.Child(flow)
				return result, err
			},
		}
	}
	return pe.runSettled(jobs)
}

// RunFuncsSettled is RunSettled for arbitrary functions of the parent
// ExecutionCtx, for callers composing ad hoc work rather than whole flows.
func (pe *ParallelExecutor) RunFuncsSettled(fns ...func(*ExecutionCtx) (any, error)) ([]SettledResult, ParallelStats) {
	jobs := make([]parallelJob, len(fns))
	for i, fn := range fns {
		jobs[i] = parallelJob{label: fmt.Sprintf("func[%d]", i), run: fn}
	}
	return pe.runSettled(jobs)
}

func (pe *ParallelExecutor) runSettled(jobs []parallelJob) ([]SettledResult, ParallelStats) {
	results := make([]SettledResult, len(jobs))

	var wg sync.WaitGroup
	wg.Add(len(jobs))

	for i, job := range jobs {
		i, job := i, job
		go func() {
			defer wg.Done()
			value, err := job.run(pe.ctx)
			results[i] = SettledResult{Value: value, Err: err}
		}()
	}
	wg.Wait()

	stats := ParallelStats{Total: len(jobs)}
	for _, r := range results {
		if r.Err != nil {
			stats.Rejected++
		} else {
			stats.Fulfilled++
		}
	}
	return results, stats
}

// ParallelSettled is shorthand for e.Parallel().RunSettled(flows...).
func (e *ExecutionCtx) ParallelSettled(flows ...AnyFlow) ([]SettledResult, ParallelStats) {
	return e.Parallel().RunSettled(flows...)
}
