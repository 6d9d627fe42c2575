package observe

import (
	"context"
	"time"

	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CallFunc is one outbound call, usually a resilience pipeline execution.
type CallFunc func(ctx context.Context) error

// Middleware wraps outbound calls with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Wrap returns a function safe for concurrent use.
//   - Errors: errors from the wrapped call are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware from its parts.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver builds a Middleware on the observer's providers.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Metrics exposes the recorder so resilience hooks can share it.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the base logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap instruments fn as the call described by meta.
func (m *Middleware) Wrap(meta CallMeta, fn CallFunc) CallFunc {
	return func(ctx context.Context) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		err := fn(ctx)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordCall(ctx, meta, duration, err)

		log := m.logger.WithCall(meta)
		fields := []Field{{Key: "duration_ms", Value: duration.Milliseconds()}}
		if err != nil {
			log.Warn(ctx, "upstream call failed", append(fields, Field{Key: "error", Value: err})...)
		} else {
			log.Debug(ctx, "upstream call completed", fields...)
		}
		return err
	}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(NewTracer(tracenoop.NewTracerProvider().Tracer("noop")), NopMetrics(), NopLogger())
}
