package observe_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/intakeworks/offlinekit/observe"
)

func ExampleNewObserver() {
	cfg := observe.Config{
		ServiceName: "example-service",
		Version:     "1.0.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: false},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	fmt.Println("Observer created successfully")
	// Output:
	// Observer created successfully
}

func ExampleNewObserver_validation() {
	// Missing service name triggers validation error
	cfg := observe.Config{
		ServiceName: "", // Empty - will fail validation
	}

	ctx := context.Background()
	_, err := observe.NewObserver(ctx, cfg)
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleConfig_Validate() {
	// Valid configuration
	cfg := observe.Config{
		ServiceName: "my-service",
		Version:     "1.0.0",
		Tracing: observe.TracingConfig{
			Enabled:   true,
			Exporter:  "stdout",
			SamplePct: 0.5, // 50% sampling
		},
		Metrics: observe.MetricsConfig{
			Enabled:  true,
			Exporter: "prometheus",
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid:", err)
	} else {
		fmt.Println("Configuration is valid")
	}
	// Output:
	// Configuration is valid
}

func ExampleEventMeta_SpanName() {
	meta := observe.EventMeta{
		Kind:     "fetch",
		Category: "static-asset",
		Strategy: "cache-first",
	}
	fmt.Println(meta.SpanName())

	meta2 := observe.EventMeta{Kind: "sync", Detail: "sync-documents"}
	fmt.Println(meta2.SpanName())
	// Output:
	// offline.event.fetch
	// offline.event.sync
}

func ExampleNewLoggerWithWriter() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf)

	ctx := context.Background()
	logger.Info(ctx, "application started", observe.Field{Key: "version", Value: "1.0.0"})

	// Output contains JSON with timestamp, level, msg, and version field
	fmt.Println("Logged message contains 'application started':", bytes.Contains(buf.Bytes(), []byte("application started")))
	// Output:
	// Logged message contains 'application started': true
}

func ExampleLogger_withComponent() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf)

	// Create component-scoped logger
	lifecycleLogger := logger.WithComponent("lifecycle")

	ctx := context.Background()
	lifecycleLogger.Info(ctx, "precache complete")

	// Output contains component context
	output := buf.String()
	fmt.Println("Contains component:", bytes.Contains([]byte(output), []byte(`"component":"lifecycle"`)))
	// Output:
	// Contains component: true
}

func ExampleMiddleware_Wrap() {
	ctx := context.Background()

	// Create observer with disabled exporters for example
	cfg := observe.Config{
		ServiceName: "example",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     observe.LoggingConfig{Enabled: false},
	}
	obs, _ := observe.NewObserver(ctx, cfg)
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	// Create middleware
	mw, _ := observe.MiddlewareFromObserver(obs)

	// Define dispatch function
	dispatchFn := func(ctx context.Context, meta observe.EventMeta) error {
		fmt.Println("handling", meta.Kind)
		return nil
	}

	// Wrap with observability
	wrapped := mw.Wrap(dispatchFn)

	// Dispatch - automatically traced, metered, and logged
	err := wrapped(ctx, observe.EventMeta{
		Kind:     "fetch",
		Category: "api-call",
		Strategy: "network-first",
	})

	if err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Println("Dispatch succeeded")
	}
	// Output:
	// handling fetch
	// Dispatch succeeded
}

func ExampleParseLogLevel() {
	levels := []string{"debug", "info", "warn", "error", "unknown"}
	for _, s := range levels {
		level := observe.ParseLogLevel(s)
		fmt.Printf("%s -> %s\n", s, level)
	}
	// Output:
	// debug -> debug
	// info -> info
	// warn -> warn
	// error -> error
	// unknown -> info
}
