package health

import (
	"context"
	"fmt"

	"github.com/intakeworks/offlinekit/cachestore"
	"github.com/intakeworks/offlinekit/lifecycle"
	"github.com/intakeworks/offlinekit/outbox"
)

// PhaseReporter is the slice of the worker the phase checker reads.
type PhaseReporter interface {
	Phase() lifecycle.Phase
}

// WorkerChecker grades the worker by its lifecycle phase. Only an active
// worker is healthy; every earlier phase is degraded because requests still
// flow but without the offline guarantees.
type WorkerChecker struct {
	worker PhaseReporter
}

// NewWorkerChecker returns a checker reporting under "worker".
func NewWorkerChecker(worker PhaseReporter) *WorkerChecker {
	return &WorkerChecker{worker: worker}
}

// Name returns "worker".
func (c *WorkerChecker) Name() string { return "worker" }

// Check reads the current phase.
func (c *WorkerChecker) Check(ctx context.Context) Result {
	phase := c.worker.Phase()
	details := map[string]any{"phase": phase.String()}
	if phase == lifecycle.PhaseActive {
		return Healthy("worker active").WithDetails(details)
	}
	return Degraded("worker " + phase.String()).WithDetails(details)
}

// CacheChecker verifies the cache store answers and reports what it holds.
type CacheChecker struct {
	store cachestore.Store
}

// NewCacheChecker returns a checker reporting under "cache-store".
func NewCacheChecker(store cachestore.Store) *CacheChecker {
	return &CacheChecker{store: store}
}

// Name returns "cache-store".
func (c *CacheChecker) Name() string { return "cache-store" }

// Check lists the named caches.
func (c *CacheChecker) Check(ctx context.Context) Result {
	names, err := c.store.Names(ctx)
	if err != nil {
		return Unhealthy("cache store unreachable", err)
	}
	return Healthy(fmt.Sprintf("%d caches", len(names))).WithDetails(map[string]any{
		"caches": names,
	})
}

// QueueCheckerConfig tunes the outbox backlog thresholds.
type QueueCheckerConfig struct {
	// Tag selects which queue to measure. Empty measures every tag.
	Tag string

	// WarnDepth is the queue depth that degrades the check. Default 50.
	WarnDepth int

	// MaxDepth is the queue depth that fails the check. Default ten times
	// WarnDepth.
	MaxDepth int
}

// QueueChecker watches the deferred-request outbox. A growing backlog means
// replays are not keeping up with what users queue while offline.
type QueueChecker struct {
	store outbox.Store
	cfg   QueueCheckerConfig
}

// NewQueueChecker returns a checker reporting under "outbox".
func NewQueueChecker(store outbox.Store, cfg QueueCheckerConfig) *QueueChecker {
	if cfg.WarnDepth <= 0 {
		cfg.WarnDepth = 50
	}
	if cfg.MaxDepth <= cfg.WarnDepth {
		cfg.MaxDepth = cfg.WarnDepth * 10
	}
	return &QueueChecker{store: store, cfg: cfg}
}

// Name returns "outbox".
func (c *QueueChecker) Name() string { return "outbox" }

// Check measures the queue depth against the thresholds.
func (c *QueueChecker) Check(ctx context.Context) Result {
	depth, err := c.store.Depth(ctx, c.cfg.Tag)
	if err != nil {
		return Unhealthy("outbox unreachable", err)
	}
	details := map[string]any{
		"depth":      depth,
		"warn_depth": c.cfg.WarnDepth,
		"max_depth":  c.cfg.MaxDepth,
	}
	if c.cfg.Tag != "" {
		details["tag"] = c.cfg.Tag
	}
	switch {
	case depth >= c.cfg.MaxDepth:
		return Unhealthy(fmt.Sprintf("outbox backlog at %d items", depth), ErrBacklog).WithDetails(details)
	case depth >= c.cfg.WarnDepth:
		return Degraded(fmt.Sprintf("outbox backlog growing, %d items", depth)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("%d items queued", depth)).WithDetails(details)
	}
}

// Pinger is anything with a liveness probe, such as the SQLite outbox store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker adapts a Pinger into a Checker.
type PingChecker struct {
	name string
	p    Pinger
}

// NewPingChecker returns a checker that reports healthy while p answers.
func NewPingChecker(name string, p Pinger) *PingChecker {
	return &PingChecker{name: name, p: p}
}

// Name returns the configured name.
func (c *PingChecker) Name() string { return c.name }

// Check pings the component.
func (c *PingChecker) Check(ctx context.Context) Result {
	if err := c.p.Ping(ctx); err != nil {
		return Unhealthy(c.name+" unreachable", err)
	}
	return Healthy(c.name + " reachable")
}

var (
	_ Checker = (*WorkerChecker)(nil)
	_ Checker = (*CacheChecker)(nil)
	_ Checker = (*QueueChecker)(nil)
	_ Checker = (*PingChecker)(nil)
)
