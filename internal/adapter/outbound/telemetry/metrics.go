// Package telemetry provides interceptors that observe validation calls:
// structured logging, Prometheus metrics and OpenTelemetry tracing.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
	"github.com/Sentinel-Gate/beanguard/internal/execution"
)

// namespace prefixes every beanguard metric.
const namespace = "beanguard"

// Metrics holds all Prometheus metrics for beanguard.
// Pass to components that need to record metrics.
type Metrics struct {
	ValidationsTotal   *prometheus.CounterVec
	ViolationsTotal    *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec
	InFlight           prometheus.Gauge
	AuditDropsTotal    prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ValidationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of validation calls",
			},
			[]string{"kind", "outcome"}, // outcome=valid/invalid/error
		),
		ViolationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "violations_total",
				Help:      "Total constraint violations reported",
			},
			[]string{"kind", "constraint"},
		),
		ValidationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_duration_seconds",
				Help:      "Validation call duration in seconds",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"kind"},
		),
		InFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "validations_in_flight",
				Help:      "Number of validation calls currently running",
			},
		),
		AuditDropsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_drops_total",
				Help:      "Total audit records dropped due to backpressure",
			},
		),
	}
}

// metricsObserver times calls with a per-scope stack of start times so nested
// validations in the same scope are measured separately.
type metricsObserver struct {
	metrics *Metrics
	starts  *execution.Stack[time.Time]
}

// NewMetricsInterceptor returns an interceptor named "metrics" recording every
// validation call into m.
func NewMetricsInterceptor(m *Metrics) intercept.Interceptor {
	return intercept.Observe("metrics", &metricsObserver{
		metrics: m,
		starts:  execution.NewStack[time.Time]("telemetry.metrics.starts"),
	})
}

func (o *metricsObserver) Before(ctx context.Context, _ *intercept.Invocation) {
	o.metrics.InFlight.Inc()
	o.starts.Push(ctx, time.Now())
}

func (o *metricsObserver) After(ctx context.Context, inv *intercept.Invocation, violations validation.Violations, err error) {
	o.metrics.InFlight.Dec()

	kind := inv.Kind.String()
	if start, ok := o.starts.Pop(ctx); ok {
		o.metrics.ValidationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
	o.metrics.ValidationsTotal.WithLabelValues(kind, string(intercept.OutcomeOf(violations, err))).Inc()
	for _, v := range violations {
		o.metrics.ViolationsTotal.WithLabelValues(kind, v.Constraint).Inc()
	}
}
