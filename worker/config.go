package worker

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/caarlos0/env/v11"

	"github.com/intakeworks/offlinekit/cachestore"
	"github.com/intakeworks/offlinekit/lifecycle"
	"github.com/intakeworks/offlinekit/observe"
	"github.com/intakeworks/offlinekit/push"
	"github.com/intakeworks/offlinekit/strategy"
	"github.com/intakeworks/offlinekit/syncqueue"
)

// ErrConfig indicates an invalid worker configuration.
var ErrConfig = errors.New("worker: invalid config")

// defaultPrefetchLimit bounds parallel fetches for the install manifest and
// the cache-urls command.
const defaultPrefetchLimit = 4

// defaultOfflinePage is the offline page URL used when none is configured.
const defaultOfflinePage = "/offline.html"

// Config configures a Worker. The tagged fields are env-bindable through
// ConfigFromEnv; the wiring below them is attached by the caller.
type Config struct {
	// BuildTag identifies this build. Cache names derive from it. Required.
	BuildTag string `env:"OFFLINE_BUILD_TAG"`

	// Origin is the application origin, e.g. "https://portal.example.com".
	// Requests to other origins pass through uncached, and relative manifest
	// and prefetch URLs resolve against it. Empty treats every GET as
	// same-origin and leaves URLs as given.
	Origin string `env:"OFFLINE_ORIGIN"`

	// Manifest lists the URLs precached on install.
	Manifest []string `env:"OFFLINE_PRECACHE_MANIFEST" envSeparator:","`

	// OfflinePageURL is the precached page served to navigations that cannot
	// be answered. Defaults to /offline.html.
	OfflinePageURL string `env:"OFFLINE_PAGE_URL" envDefault:"/offline.html"`

	// APIPrefixes, StaticRoots, and ShellRoots feed the request classifier.
	// Unset fields fall back to the classify package defaults.
	APIPrefixes []string `env:"OFFLINE_API_PREFIXES" envSeparator:","`
	StaticRoots []string `env:"OFFLINE_STATIC_ROOTS" envSeparator:","`
	ShellRoots  []string `env:"OFFLINE_SHELL_ROOTS" envSeparator:","`

	// PrefetchLimit bounds parallel fetches for the install manifest and the
	// cache-urls command. Defaults to 4.
	PrefetchLimit int `env:"OFFLINE_PREFETCH_LIMIT" envDefault:"4"`

	// Store holds the named caches. Required.
	Store cachestore.Store

	// Fetcher reaches the origin. Required.
	Fetcher strategy.Fetcher

	// Push handles push and interaction events. Optional; without it those
	// events are logged and dropped.
	Push *push.Handler

	// Sync dispatches sync events to replay handlers. Optional; without it
	// sync events are logged and dropped.
	Sync *syncqueue.Registry

	// Claimer takes over open pages on activation. Optional.
	Claimer lifecycle.PageClaimer

	// Logger receives worker logs. Optional; nil discards them.
	Logger observe.Logger

	// Middleware wraps every dispatch with tracing, metrics, and logging.
	// Optional.
	Middleware *observe.Middleware
}

// Validate checks that the required wiring is present and the knobs are
// usable.
func (c Config) Validate() error {
	if c.BuildTag == "" {
		return fmt.Errorf("%w: build tag is required", ErrConfig)
	}
	if c.Store == nil {
		return fmt.Errorf("%w: store is required", ErrConfig)
	}
	if c.Fetcher == nil {
		return fmt.Errorf("%w: fetcher is required", ErrConfig)
	}
	if c.Origin != "" {
		u, err := url.Parse(c.Origin)
		if err != nil || u.Host == "" {
			return fmt.Errorf("%w: origin %q is not an absolute URL", ErrConfig, c.Origin)
		}
	}
	if c.PrefetchLimit < 0 {
		return fmt.Errorf("%w: prefetch limit %d is negative", ErrConfig, c.PrefetchLimit)
	}
	return nil
}

// ConfigFromEnv reads the env-bindable fields from OFFLINE_* variables.
// The caller attaches the wiring (Store, Fetcher, handlers) before New.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("worker: parse env: %w", err)
	}
	return cfg, nil
}

// resolveURL makes raw absolute against origin. Already-absolute URLs and a
// nil origin pass through unchanged.
func resolveURL(origin *url.URL, raw string) string {
	if origin == nil || raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host != "" {
		return raw
	}
	return origin.ResolveReference(u).String()
}
