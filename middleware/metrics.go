package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shrek82/jrecord/core"
)

// MetricsMiddleware exports Prometheus metrics for store operations.
// Installed as the engine Observer it also counts callback invocations.
type MetricsMiddleware struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Callbacks  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg,
// or with the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) (*MetricsMiddleware, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &MetricsMiddleware{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jrecord_store_operations_total",
				Help: "Total number of store operations",
			},
			[]string{"op", "collection", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jrecord_store_operation_duration_seconds",
				Help:    "Duration of store operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "collection"},
		),
		Callbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jrecord_callbacks_total",
				Help: "Total number of lifecycle callback invocations",
			},
			[]string{"chain", "class", "result"},
		),
	}
	for _, c := range []prometheus.Collector{m.Operations, m.Duration, m.Callbacks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *MetricsMiddleware) Name() string {
	return "Metrics"
}

func (m *MetricsMiddleware) Init(e *core.Engine) error {
	return nil
}

func (m *MetricsMiddleware) Shutdown() error {
	return nil
}

func (m *MetricsMiddleware) Process(ctx context.Context, op *core.Operation, next core.OpFunc) (*core.OpResult, error) {
	start := time.Now()
	res, err := next(ctx, op)
	m.Duration.WithLabelValues(string(op.Kind), op.Collection).Observe(time.Since(start).Seconds())

	status := "ok"
	switch {
	case errors.Is(err, core.ErrRecordNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	m.Operations.WithLabelValues(string(op.Kind), op.Collection, status).Inc()
	return res, err
}

// Observe implements core.Observer.
func (m *MetricsMiddleware) Observe(t core.Trace) {
	result := t.Result.String()
	if t.Err != nil {
		result = "error"
	}
	m.Callbacks.WithLabelValues(t.Label(), t.Class, result).Inc()
}
