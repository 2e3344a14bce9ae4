package extensions

import (
	"context"
	"log/slog"

	"github.com/petermattis/goid"

	pumped "github.com/pumped-fn/pumped-core"
)

// GoroutineTraceExtension annotates every operation log line with the
// goroutine ID it ran on. Update runs its cleanups and re-resolution
// synchronously on the calling goroutine, so when several goroutines resolve
// or update at once a plain slog timestamp often isn't enough to tell which
// log lines belong to the same call; the goroutine ID pins that down without
// plumbing a request ID through every factory.
type GoroutineTraceExtension struct {
	pumped.BaseExtension
	logger *slog.Logger
}

// NewGoroutineTraceExtension creates a trace extension writing to logger. A
// nil logger falls back to slog.Default().
func NewGoroutineTraceExtension(logger *slog.Logger) *GoroutineTraceExtension {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoroutineTraceExtension{
		BaseExtension: pumped.NewBaseExtension("goroutine-trace"),
		logger:        logger,
	}
}

func (e *GoroutineTraceExtension) Wrap(ctx context.Context, next func() (any, error), op *pumped.Operation) (any, error) {
	gid := goid.Get()
	e.logger.Debug("operation on goroutine", "goroutine_id", gid, "kind", op.Kind)

	result, err := next()
	if err != nil {
		e.logger.Debug("operation failed on goroutine", "goroutine_id", gid, "kind", op.Kind, "error", err)
	}
	return result, err
}

func (e *GoroutineTraceExtension) OnFlowStart(execCtx *pumped.ExecutionCtx, flow pumped.AnyFlow) error {
	name, _ := flow.GetTag(pumped.FlowName())
	e.logger.Debug("flow started on goroutine", "goroutine_id", goid.Get(), "flow", name)
	return nil
}
