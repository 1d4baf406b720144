package observe

import (
	"context"
	"time"
)

// DispatchFunc is the signature for event dispatch functions.
// This is the standard function signature that Middleware wraps.
type DispatchFunc func(ctx context.Context, meta EventMeta) error

// Middleware wraps event dispatch with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe DispatchFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger.WithComponent("dispatch"),
	}
}

// Wrap wraps a DispatchFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn DispatchFunc) DispatchFunc {
	return func(ctx context.Context, meta EventMeta) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)

		start := time.Now()
		err := fn(ctx, meta)
		duration := time.Since(start)

		// End span (records error status if err != nil)
		m.tracer.EndSpan(span, err)

		m.metrics.RecordEvent(ctx, meta, duration, err)

		fields := []Field{
			{Key: "event", Value: meta.Kind},
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if meta.Category != "" {
			fields = append(fields, Field{Key: "category", Value: meta.Category})
		}
		if meta.Detail != "" {
			fields = append(fields, Field{Key: "detail", Value: meta.Detail})
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			m.logger.Error(ctx, "event handling failed", fields...)
		} else {
			m.logger.Debug(ctx, "event handled", fields...)
		}

		return err
	}
}

// Metrics returns the middleware's metrics recorder, shared with callers
// that record outcomes outside the dispatch path (e.g. fetch sources).
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
