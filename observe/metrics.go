package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records outbound call and resilience activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)
	RecordRetry(ctx context.Context, dependency string, attempt int)
	RecordBreakerTransition(ctx context.Context, dependency, from, to string)
	RecordFallback(ctx context.Context, reason string)
}

type metricsImpl struct {
	calls       metric.Int64Counter
	errors      metric.Int64Counter
	duration    metric.Float64Histogram
	retries     metric.Int64Counter
	transitions metric.Int64Counter
	fallbacks   metric.Int64Counter
}

// NewMetrics registers the instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	if m.calls, err = meter.Int64Counter("upstream.calls.total",
		metric.WithDescription("Outbound calls after the resilience pipeline"),
		metric.WithUnit("{call}")); err != nil {
		return nil, err
	}
	if m.errors, err = meter.Int64Counter("upstream.calls.errors",
		metric.WithDescription("Outbound calls that ended in failure"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("upstream.calls.duration_ms",
		metric.WithDescription("Outbound call duration including retries"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.retries, err = meter.Int64Counter("resilience.retries",
		metric.WithUnit("{retry}")); err != nil {
		return nil, err
	}
	if m.transitions, err = meter.Int64Counter("resilience.breaker.transitions",
		metric.WithUnit("{transition}")); err != nil {
		return nil, err
	}
	if m.fallbacks, err = meter.Int64Counter("aggregator.rewrite.fallbacks",
		metric.WithDescription("Enriched responses served with the original description"),
		metric.WithUnit("{response}")); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(
		attribute.String("dependency", meta.Dependency),
		attribute.String("operation", meta.Operation),
	)

	m.calls.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordRetry(ctx context.Context, dependency string, attempt int) {
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dependency", dependency),
		attribute.Int("attempt", attempt),
	))
}

func (m *metricsImpl) RecordBreakerTransition(ctx context.Context, dependency, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dependency", dependency),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *metricsImpl) RecordFallback(ctx context.Context, reason string) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// NopMetrics returns a recorder that drops everything.
func NopMetrics() Metrics { return nopMetrics{} }

type nopMetrics struct{}

func (nopMetrics) RecordCall(context.Context, CallMeta, time.Duration, error)      {}
func (nopMetrics) RecordRetry(context.Context, string, int)                        {}
func (nopMetrics) RecordBreakerTransition(context.Context, string, string, string) {}
func (nopMetrics) RecordFallback(context.Context, string)                          {}
