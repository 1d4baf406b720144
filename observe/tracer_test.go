package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestEventMeta_SpanName verifies the deterministic span naming scheme.
func TestEventMeta_SpanName(t *testing.T) {
	tests := []struct {
		kind     string
		expected string
	}{
		{"install", "offline.event.install"},
		{"activate", "offline.event.activate"},
		{"fetch", "offline.event.fetch"},
		{"push", "offline.event.push"},
		{"sync", "offline.event.sync"},
		{"message", "offline.event.message"},
	}

	for _, tc := range tests {
		t.Run(tc.kind, func(t *testing.T) {
			meta := EventMeta{Kind: tc.kind}
			if got := meta.SpanName(); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

// TestTracer_SpanAttributes verifies all attributes are present on span.
func TestTracer_SpanAttributes(t *testing.T) {
	// Set up in-memory span recorder
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := EventMeta{
		Kind:     "fetch",
		Category: "api-call",
		Strategy: "network-first",
		Detail:   "/portal/api/status",
	}

	ctx, span := tr.StartSpan(context.Background(), meta)
	tr.EndSpan(span, nil)
	_ = ctx // Suppress unused warning

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]

	// Verify span name
	if s.Name() != "offline.event.fetch" {
		t.Errorf("expected span name 'offline.event.fetch', got %q", s.Name())
	}

	// Verify attributes
	attrMap := make(map[string]attribute.Value)
	for _, a := range s.Attributes() {
		attrMap[string(a.Key)] = a.Value
	}

	if v, ok := attrMap["event.kind"]; !ok || v.AsString() != "fetch" {
		t.Errorf("expected event.kind='fetch', got %v", v)
	}
	if v, ok := attrMap["event.category"]; !ok || v.AsString() != "api-call" {
		t.Errorf("expected event.category='api-call', got %v", v)
	}
	if v, ok := attrMap["event.strategy"]; !ok || v.AsString() != "network-first" {
		t.Errorf("expected event.strategy='network-first', got %v", v)
	}
	if v, ok := attrMap["event.detail"]; !ok || v.AsString() != "/portal/api/status" {
		t.Errorf("expected event.detail='/portal/api/status', got %v", v)
	}
	if v, ok := attrMap["event.error"]; !ok || v.AsBool() {
		t.Errorf("expected event.error=false, got %v", v)
	}
}

// TestTracer_OptionalAttributesOmitted verifies empty fields produce no attributes.
func TestTracer_OptionalAttributesOmitted(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	tr := &tracerImpl{tracer: tp.Tracer("test")}
	meta := EventMeta{Kind: "install"}

	_, span := tr.StartSpan(context.Background(), meta)
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	for _, a := range spans[0].Attributes() {
		switch string(a.Key) {
		case "event.category", "event.strategy", "event.detail":
			t.Errorf("unexpected attribute %s on a bare event", a.Key)
		}
	}
}

// TestTracer_ErrorStatus verifies error recording on span end.
func TestTracer_ErrorStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	tr := &tracerImpl{tracer: tp.Tracer("test")}
	meta := EventMeta{Kind: "sync", Detail: "sync-messages"}

	_, span := tr.StartSpan(context.Background(), meta)
	replayErr := errors.New("replay failed: connection refused")
	tr.EndSpan(span, replayErr)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Errorf("expected error status code, got %v", s.Status().Code)
	}
	if s.Status().Description != replayErr.Error() {
		t.Errorf("expected status description %q, got %q", replayErr.Error(), s.Status().Description)
	}

	var errorAttr bool
	for _, a := range s.Attributes() {
		if string(a.Key) == "event.error" {
			errorAttr = a.Value.AsBool()
		}
	}
	if !errorAttr {
		t.Error("expected event.error=true after a failed event")
	}

	// RecordError adds an exception event
	if len(s.Events()) == 0 {
		t.Error("expected at least one span event recording the error")
	}
}

// TestTracer_OkStatus verifies success recording on span end.
func TestTracer_OkStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	tr := &tracerImpl{tracer: tp.Tracer("test")}

	_, span := tr.StartSpan(context.Background(), EventMeta{Kind: "activate"})
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected ok status code, got %v", spans[0].Status().Code)
	}
}

// TestNoopTracer verifies the noop tracer produces usable spans.
func TestNoopTracer(t *testing.T) {
	tr := newNoopTracer()

	ctx, span := tr.StartSpan(context.Background(), EventMeta{Kind: "push"})
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	if span == nil {
		t.Fatal("expected non-nil span")
	}

	// Must not panic with or without error
	tr.EndSpan(span, nil)

	_, span2 := tr.StartSpan(context.Background(), EventMeta{Kind: "push"})
	tr.EndSpan(span2, errors.New("boom"))
}
