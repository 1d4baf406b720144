package strategy

import (
	"context"
	"net/http"

	"github.com/intakeworks/offlinekit/cachestore"
	"github.com/intakeworks/offlinekit/classify"
)

// StaleWhileRevalidate serves the cached copy immediately and refreshes it in
// the background, so the next request sees the newer version. Suited to
// navigable pages where a slightly stale answer beats a slow one.
type StaleWhileRevalidate struct {
	cache    cachestore.Cache
	fetcher  Fetcher
	fallback *Fallback
	spawner  Spawner
}

// NewStaleWhileRevalidate returns a stale-while-revalidate strategy.
// fallback may be nil; navigations then get the built-in offline page.
// spawner may be nil; revalidation then runs on a detached goroutine.
func NewStaleWhileRevalidate(cache cachestore.Cache, fetcher Fetcher, fallback *Fallback, spawner Spawner) *StaleWhileRevalidate {
	if spawner == nil {
		spawner = detachedSpawner{}
	}
	return &StaleWhileRevalidate{cache: cache, fetcher: fetcher, fallback: fallback, spawner: spawner}
}

// Name reports "stale-while-revalidate".
func (s *StaleWhileRevalidate) Name() string { return "stale-while-revalidate" }

// Respond returns the cached copy when one exists and revalidates it in the
// background. On a cache miss it degrades to network-first behavior.
func (s *StaleWhileRevalidate) Respond(ctx context.Context, req *http.Request) (*cachestore.Response, error) {
	if cached, ok := s.cache.Match(ctx, req); ok {
		s.spawner.Spawn(func(ctx context.Context) {
			s.revalidate(ctx, req)
		})
		cached.Source = cachestore.SourceCache
		return cached, nil
	}
	resp, err := s.fetcher.Fetch(ctx, req)
	if err == nil {
		storeIfOK(ctx, s.cache, req, resp)
		resp.Source = cachestore.SourceNetwork
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if classify.IsNavigation(req) {
		return s.fallback.Page(ctx), nil
	}
	return OfflineJSON(req), nil
}

// revalidate refreshes the cached copy for req. Failures are dropped; the
// stale copy stays in place until a refresh succeeds.
func (s *StaleWhileRevalidate) revalidate(ctx context.Context, req *http.Request) {
	resp, err := s.fetcher.Fetch(ctx, req.Clone(ctx))
	if err != nil {
		return
	}
	storeIfOK(ctx, s.cache, req, resp)
}

var _ Strategy = (*StaleWhileRevalidate)(nil)
