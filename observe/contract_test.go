package observe

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

// TestObserverContract_Noops verifies disabled observers return safe no-op
// implementations rather than nils.
func TestObserverContract_Noops(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "offlinekit-test"})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	}()

	if obs.Tracer() == nil {
		t.Error("Tracer() returned nil, want noop tracer")
	}
	if obs.Meter() == nil {
		t.Error("Meter() returned nil, want noop meter")
	}
	if obs.Logger() == nil {
		t.Error("Logger() returned nil, want noop logger")
	}
}

// TestLoggerContract_WithComponent verifies child loggers never return nil
// and keep working after chained derivation.
func TestLoggerContract_WithComponent(t *testing.T) {
	loggers := []struct {
		name   string
		logger Logger
	}{
		{"noop", &noopLogger{}},
		{"structured", NewLoggerWithWriter("debug", io.Discard)},
	}

	for _, tc := range loggers {
		t.Run(tc.name, func(t *testing.T) {
			child := tc.logger.WithComponent("lifecycle")
			if child == nil {
				t.Fatal("WithComponent returned nil")
			}
			grandchild := child.WithComponent("precache")
			if grandchild == nil {
				t.Fatal("chained WithComponent returned nil")
			}

			ctx := context.Background()
			grandchild.Debug(ctx, "debug message")
			grandchild.Info(ctx, "info message", Field{Key: "k", Value: "v"})
			grandchild.Warn(ctx, "warn message")
			grandchild.Error(ctx, "error message", Field{Key: "err", Value: "boom"})
		})
	}
}

// TestMetricsContract_NoPanic verifies the noop metrics recorder accepts
// every call shape without panicking.
func TestMetricsContract_NoPanic(t *testing.T) {
	m := &noopMetrics{}
	ctx := context.Background()

	m.RecordEvent(ctx, EventMeta{}, 0, nil)
	m.RecordEvent(ctx, EventMeta{Kind: "fetch", Category: "api-call"}, time.Second, errors.New("boom"))
	m.RecordFetch(ctx, "", "", "")
	m.RecordFetch(ctx, "static-asset", "cache-first", "cache")
}

// TestTracerContract_NoPanic verifies the noop tracer tolerates every
// start/end order, including spans carrying errors.
func TestTracerContract_NoPanic(t *testing.T) {
	tr := newNoopTracer()
	ctx := context.Background()

	spanCtx, span := tr.StartSpan(ctx, EventMeta{Kind: "push"})
	if spanCtx == nil {
		t.Fatal("StartSpan returned nil context")
	}
	tr.EndSpan(span, nil)

	_, span2 := tr.StartSpan(ctx, EventMeta{Kind: "sync", Detail: "sync-messages"})
	tr.EndSpan(span2, errors.New("boom"))
}
