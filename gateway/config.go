package gateway

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/intakeworks/offlinekit/observe"
	"github.com/intakeworks/offlinekit/worker"
)

// ErrConfig indicates an invalid gateway configuration.
var ErrConfig = errors.New("gateway: invalid config")

// serviceName identifies the daemon in telemetry.
const serviceName = "offlined"

// Config configures a gateway Server. The tagged fields are env-bindable
// through ConfigFromEnv; the nested worker config binds its own OFFLINE_*
// variables in the same pass.
type Config struct {
	// Addr is the listen address.
	Addr string `env:"GATEWAY_ADDR" envDefault:"localhost:8787"`

	// CacheURL roots the persistent cache store, e.g.
	// "file:///var/lib/offlinekit/caches". Any afs scheme works. Empty keeps
	// the caches in memory.
	CacheURL string `env:"GATEWAY_CACHE_URL"`

	// OutboxPath is the SQLite file holding deferred requests. Empty keeps
	// the outbox in memory, which means queued mutations do not survive a
	// restart.
	OutboxPath string `env:"GATEWAY_OUTBOX_PATH"`

	// SyncTags are the outbox tags the gateway replays. A mutation may only
	// defer under one of these tags.
	SyncTags []string `env:"GATEWAY_SYNC_TAGS" envSeparator:"," envDefault:"sync-messages"`

	// FetchTimeout bounds one origin fetch.
	FetchTimeout time.Duration `env:"GATEWAY_FETCH_TIMEOUT" envDefault:"30s"`

	// ShutdownTimeout bounds draining in-flight requests on exit.
	ShutdownTimeout time.Duration `env:"GATEWAY_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// LogLevel sets the log level (debug|info|warn|error). Empty disables
	// logging.
	LogLevel string `env:"GATEWAY_LOG_LEVEL" envDefault:"info"`

	// TracingExporter enables tracing when set (otlp|stdout|none).
	TracingExporter string `env:"GATEWAY_TRACING_EXPORTER"`

	// TraceSamplePct is the trace sampling ratio, 0.0 to 1.0.
	TraceSamplePct float64 `env:"GATEWAY_TRACE_SAMPLE_PCT" envDefault:"1.0"`

	// MetricsExporter enables metrics when set (otlp|prometheus|stdout|none).
	MetricsExporter string `env:"GATEWAY_METRICS_EXPORTER"`

	// Worker carries the worker's own knobs. ConfigFromEnv binds its
	// OFFLINE_* variables; NewServer attaches the store, the fetcher, and
	// the handlers.
	Worker worker.Config
}

// Validate checks the gateway-level knobs. The worker config validates
// itself inside worker.New.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: listen address is required", ErrConfig)
	}
	if c.CacheURL != "" && !strings.Contains(c.CacheURL, "://") {
		return fmt.Errorf("%w: cache url %q carries no afs scheme", ErrConfig, c.CacheURL)
	}
	for _, tag := range c.SyncTags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("%w: sync tags must be non-empty", ErrConfig)
		}
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: fetch timeout %s is not positive", ErrConfig, c.FetchTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout %s is not positive", ErrConfig, c.ShutdownTimeout)
	}
	if c.TraceSamplePct < 0 || c.TraceSamplePct > 1 {
		return fmt.Errorf("%w: trace sample pct %v is outside 0.0-1.0", ErrConfig, c.TraceSamplePct)
	}
	return nil
}

// ConfigFromEnv reads the GATEWAY_* and OFFLINE_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("gateway: parse env: %w", err)
	}
	return cfg, nil
}

// observeConfig maps the telemetry knobs onto the observe stack. A subsystem
// is enabled exactly when its exporter or level is set.
func (c Config) observeConfig() observe.Config {
	return observe.Config{
		ServiceName: serviceName,
		Version:     c.Worker.BuildTag,
		Tracing: observe.TracingConfig{
			Enabled:   c.TracingExporter != "",
			Exporter:  c.TracingExporter,
			SamplePct: c.TraceSamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.MetricsExporter != "",
			Exporter: c.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: c.LogLevel != "",
			Level:   c.LogLevel,
		},
	}
}
