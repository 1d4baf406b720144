package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// EventMeta contains metadata about a dispatched event for telemetry purposes.
type EventMeta struct {
	Kind     string // Event kind: install, activate, fetch, push, interaction, sync, message (required)
	Category string // Request category for fetch events (optional)
	Strategy string // Strategy chosen for fetch events (optional)
	Detail   string // Kind-specific detail: request path, sync tag, command type (optional)
}

// SpanName returns the deterministic span name for this event.
// Format: offline.event.<kind>
func (m EventMeta) SpanName() string {
	return "offline.event." + m.Kind
}

// Tracer wraps OpenTelemetry tracing with event-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan must honor cancellation/deadlines and return ctx.Err() when canceled.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for event handling.
	StartSpan(ctx context.Context, meta EventMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with event metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta EventMeta) (context.Context, trace.Span) {
	spanName := meta.SpanName()

	attrs := []attribute.KeyValue{
		attribute.String("event.kind", meta.Kind),
		attribute.Bool("event.error", false), // Will be updated in EndSpan if error
	}

	// Add optional attributes if present
	if meta.Category != "" {
		attrs = append(attrs, attribute.String("event.category", meta.Category))
	}
	if meta.Strategy != "" {
		attrs = append(attrs, attribute.String("event.strategy", meta.Strategy))
	}
	if meta.Detail != "" {
		attrs = append(attrs, attribute.String("event.detail", meta.Detail))
	}

	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("event.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta EventMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
