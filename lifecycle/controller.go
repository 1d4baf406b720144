package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/intakeworks/offlinekit/cachestore"
	"github.com/intakeworks/offlinekit/strategy"
)

var (
	// ErrPhase indicates an operation was attempted in the wrong phase.
	ErrPhase = errors.New("lifecycle: invalid phase")

	// ErrConfig indicates an invalid controller configuration.
	ErrConfig = errors.New("lifecycle: invalid config")
)

// defaultConcurrency bounds parallel precache fetches.
const defaultConcurrency = 8

// PageClaimer takes over open pages when a new version activates, without
// waiting for them to reload.
type PageClaimer interface {
	Claim(ctx context.Context) error
}

// PrecacheFailure records one manifest entry that could not be cached.
type PrecacheFailure struct {
	URL string
	Err error
}

// PrecacheStats summarizes an install's precache pass.
type PrecacheStats struct {
	Attempted int
	Cached    int
	Failed    []PrecacheFailure
}

// Config configures a Controller.
type Config struct {
	// Store is the cache store the controller installs into. Required.
	Store cachestore.Store

	// Fetcher retrieves manifest entries from the origin. Required.
	Fetcher strategy.Fetcher

	// Versions names the caches owned by this build. Tag must be set.
	Versions VersionSet

	// Manifest lists the URLs precached on install.
	Manifest []string

	// Claimer takes over open pages on activation. Optional.
	Claimer PageClaimer

	// Concurrency bounds parallel precache fetches. Defaults to 8.
	Concurrency int
}

// Controller walks one worker version through install and activation.
type Controller struct {
	store       cachestore.Store
	fetcher     strategy.Fetcher
	versions    VersionSet
	manifest    []string
	claimer     PageClaimer
	concurrency int

	mu    sync.Mutex
	phase Phase
	skip  bool
	stats PrecacheStats
}

// NewController validates cfg and returns an uninstalled controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrConfig)
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is required", ErrConfig)
	}
	if cfg.Versions.Tag == "" {
		return nil, fmt.Errorf("%w: version tag is empty", ErrConfig)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Controller{
		store:       cfg.Store,
		fetcher:     cfg.Fetcher,
		versions:    cfg.Versions,
		manifest:    cfg.Manifest,
		claimer:     cfg.Claimer,
		concurrency: cfg.Concurrency,
	}, nil
}

// Versions returns the cache names owned by this controller's build.
func (c *Controller) Versions() VersionSet { return c.versions }

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// LastPrecache returns the stats from the most recent successful install.
func (c *Controller) LastPrecache() PrecacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Install precaches the manifest into the static cache and moves the
// controller to the installed phase. Individual entries that fail to fetch
// or store are reported in the stats but do not fail the install; only a
// cancelled context or an unopenable cache does, reverting the controller
// to uninstalled so the install can be retried.
func (c *Controller) Install(ctx context.Context) (PrecacheStats, error) {
	if err := c.transition("install", PhaseUninstalled, PhaseInstalling); err != nil {
		return PrecacheStats{}, err
	}
	stats, err := c.precache(ctx)
	if err != nil {
		c.setPhase(PhaseUninstalled)
		return stats, fmt.Errorf("lifecycle: install %s: %w", c.versions.Tag, err)
	}
	c.mu.Lock()
	c.phase = PhaseInstalled
	c.stats = stats
	c.mu.Unlock()
	return stats, nil
}

func (c *Controller) precache(ctx context.Context) (PrecacheStats, error) {
	cache, err := c.store.Open(ctx, c.versions.Static)
	if err != nil {
		return PrecacheStats{}, err
	}

	var mu sync.Mutex
	stats := PrecacheStats{Attempted: len(c.manifest)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, url := range c.manifest {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := c.precacheOne(gctx, cache, url)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed = append(stats.Failed, PrecacheFailure{URL: url, Err: err})
			} else {
				stats.Cached++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (c *Controller) precacheOne(ctx context.Context, cache cachestore.Cache, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	// Force a fresh copy past intermediary HTTP caches.
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return cache.Put(ctx, req, resp)
}

// Activate evicts every cache that does not belong to this version, claims
// open pages, and moves the controller to the active phase. Eviction always
// completes before the phase changes. It returns the names of the caches it
// dropped. On error the controller reverts to installed; Activate can be
// retried.
func (c *Controller) Activate(ctx context.Context) ([]string, error) {
	if err := c.transition("activate", PhaseInstalled, PhaseActivating); err != nil {
		return nil, err
	}
	dropped, err := c.takeOver(ctx)
	if err != nil {
		c.setPhase(PhaseInstalled)
		return dropped, fmt.Errorf("lifecycle: activate %s: %w", c.versions.Tag, err)
	}
	c.setPhase(PhaseActive)
	return dropped, nil
}

func (c *Controller) takeOver(ctx context.Context) ([]string, error) {
	names, err := c.store.Names(ctx)
	if err != nil {
		return nil, err
	}
	var dropped []string
	var errs []error
	for _, name := range names {
		if c.versions.Contains(name) {
			continue
		}
		if err := c.store.Drop(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("drop %s: %w", name, err))
			continue
		}
		dropped = append(dropped, name)
	}
	if err := errors.Join(errs...); err != nil {
		return dropped, err
	}
	if c.claimer != nil {
		if err := c.claimer.Claim(ctx); err != nil {
			return dropped, fmt.Errorf("claim pages: %w", err)
		}
	}
	return dropped, nil
}

// SkipWaiting flags the controller to bypass the waiting phase. It reports
// whether the controller is installed and may activate right away.
func (c *Controller) SkipWaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skip = true
	return c.phase == PhaseInstalled
}

// SkipRequested reports whether SkipWaiting has been called.
func (c *Controller) SkipRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skip
}

func (c *Controller) transition(op string, from, to Phase) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != from {
		return fmt.Errorf("%w: cannot %s while %s", ErrPhase, op, c.phase)
	}
	c.phase = to
	return nil
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}
