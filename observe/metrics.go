package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records dispatch metrics for the offline layer.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordEvent records one handled event with duration and error status.
	RecordEvent(ctx context.Context, meta EventMeta, duration time.Duration, err error)

	// RecordFetch records the outcome of one intercepted request: the
	// category it classified into, the strategy that answered it, and the
	// source the response came from (cache, network, fallback).
	RecordFetch(ctx context.Context, category, strategy, source string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	eventCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	fetchCount   metric.Int64Counter
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	eventCount, err := meter.Int64Counter(
		"offline.event.total",
		metric.WithDescription("Total number of handled events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"offline.event.errors",
		metric.WithDescription("Total number of event handler errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"offline.event.duration_ms",
		metric.WithDescription("Event handling duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	fetchCount, err := meter.Int64Counter(
		"offline.fetch.total",
		metric.WithDescription("Total number of intercepted requests by category, strategy, and response source"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		eventCount:   eventCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		fetchCount:   fetchCount,
	}, nil
}

// RecordEvent records metrics for one handled event.
func (m *metricsImpl) RecordEvent(ctx context.Context, meta EventMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("event.kind", meta.Kind),
	}
	if meta.Category != "" {
		attrs = append(attrs, attribute.String("event.category", meta.Category))
	}

	opt := metric.WithAttributes(attrs...)

	// Always increment total counter
	m.eventCount.Add(ctx, 1, opt)

	// Increment error counter on failure
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	// Record duration in milliseconds
	durationMs := float64(duration.Milliseconds())
	m.durationHist.Record(ctx, durationMs, opt)
}

// RecordFetch records one intercepted request outcome.
func (m *metricsImpl) RecordFetch(ctx context.Context, category, strategy, source string) {
	m.fetchCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("fetch.category", category),
		attribute.String("fetch.strategy", strategy),
		attribute.String("fetch.source", source),
	))
}

// NopMetrics returns a Metrics that records nothing. Useful as a default
// for components whose caller did not wire observability.
func NopMetrics() Metrics {
	return &noopMetrics{}
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordEvent(ctx context.Context, meta EventMeta, duration time.Duration, err error) {
}

func (m *noopMetrics) RecordFetch(ctx context.Context, category, strategy, source string) {}
