package extensions

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pumped "github.com/pumped-fn/pumped-core"
)

// MetricsExtension records resolve/update counts and latencies, and flow
// outcomes, as Prometheus metrics. Register its collectors on the caller's
// registry (or prometheus.DefaultRegisterer) once per process; the
// extension itself is safe to attach to multiple scopes sharing the same
// collectors.
type MetricsExtension struct {
	pumped.BaseExtension

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	flows      *prometheus.CounterVec
	panics     prometheus.Counter
}

// NewMetricsExtension builds the collectors and registers them on reg. A
// nil reg uses prometheus.DefaultRegisterer.
func NewMetricsExtension(reg prometheus.Registerer) *MetricsExtension {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	e := &MetricsExtension{
		BaseExtension: pumped.NewBaseExtension("metrics"),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pumped",
			Name:      "operations_total",
			Help:      "Count of scope operations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pumped",
			Name:      "operation_duration_seconds",
			Help:      "Latency of scope operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pumped",
			Name:      "flow_executions_total",
			Help:      "Count of flow executions by name and outcome.",
		}, []string{"flow", "outcome"}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pumped",
			Name:      "flow_panics_total",
			Help:      "Count of flow executions that recovered from a panic.",
		}),
	}

	reg.MustRegister(e.operations, e.duration, e.flows, e.panics)
	return e
}

func (e *MetricsExtension) Wrap(ctx context.Context, next func() (any, error), op *pumped.Operation) (any, error) {
	start := time.Now()
	result, err := next()

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.operations.WithLabelValues(string(op.Kind), outcome).Inc()
	e.duration.WithLabelValues(string(op.Kind)).Observe(time.Since(start).Seconds())

	return result, err
}

func (e *MetricsExtension) OnFlowEnd(execCtx *pumped.ExecutionCtx, result any, err error) error {
	name, ok := execCtx.Get(pumped.FlowName())
	flowName, _ := name.(string)
	if !ok || flowName == "" {
		flowName = "unnamed"
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	e.flows.WithLabelValues(flowName, outcome).Inc()
	return nil
}

func (e *MetricsExtension) OnFlowPanic(execCtx *pumped.ExecutionCtx, recovered any, stack []byte) error {
	e.panics.Inc()
	return nil
}
