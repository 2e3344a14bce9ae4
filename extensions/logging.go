package extensions

import (
	"context"
	"log/slog"
	"time"

	pumped "github.com/pumped-fn/pumped-core"
)

// LoggingExtension logs every resolve/update operation and flow
// start/end/panic through log/slog, at Debug for routine resolution and
// Error for failures.
type LoggingExtension struct {
	pumped.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a logging extension writing to logger. A nil
// logger falls back to slog.Default().
func NewLoggingExtension(logger *slog.Logger) *LoggingExtension {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingExtension{
		BaseExtension: pumped.NewBaseExtension("logging"),
		logger:        logger,
	}
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *pumped.Operation) (any, error) {
	start := time.Now()
	e.logger.Debug("operation starting", "extension", e.Name(), "kind", op.Kind)

	result, err := next()

	duration := time.Since(start)
	if err != nil {
		e.logger.Error("operation failed", "extension", e.Name(), "kind", op.Kind, "duration", duration, "error", err)
	} else {
		e.logger.Debug("operation completed", "extension", e.Name(), "kind", op.Kind, "duration", duration)
	}

	return result, err
}

func (e *LoggingExtension) OnFlowStart(execCtx *pumped.ExecutionCtx, flow pumped.AnyFlow) error {
	name, _ := flow.GetTag(pumped.FlowName())
	e.logger.Info("flow started", "flow", name)
	return nil
}

func (e *LoggingExtension) OnFlowEnd(execCtx *pumped.ExecutionCtx, result any, err error) error {
	if err != nil {
		e.logger.Error("flow ended with error", "error", err)
	} else {
		e.logger.Info("flow ended")
	}
	return nil
}

func (e *LoggingExtension) OnFlowPanic(execCtx *pumped.ExecutionCtx, recovered any, stack []byte) error {
	e.logger.Error("flow panicked", "recovered", recovered, "stack", string(stack))
	return nil
}
