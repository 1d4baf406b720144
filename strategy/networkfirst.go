package strategy

import (
	"context"
	"net/http"

	"github.com/intakeworks/offlinekit/cachestore"
	"github.com/intakeworks/offlinekit/classify"
)

// NetworkFirst prefers a live response and falls back to the cache only when
// the origin is unreachable. Suited to API calls where freshness wins.
type NetworkFirst struct {
	cache    cachestore.Cache
	fetcher  Fetcher
	fallback *Fallback
}

// NewNetworkFirst returns a network-first strategy over cache and fetcher.
// fallback may be nil; navigations then get the built-in offline page.
func NewNetworkFirst(cache cachestore.Cache, fetcher Fetcher, fallback *Fallback) *NetworkFirst {
	return &NetworkFirst{cache: cache, fetcher: fetcher, fallback: fallback}
}

// Name reports "network-first".
func (s *NetworkFirst) Name() string { return "network-first" }

// Respond fetches from the network first. A success is cached and returned;
// an HTTP error status is returned as-is and never cached. Only when the
// origin is unreachable does the cache answer, and when it cannot, the
// caller gets the offline page for navigations or a JSON offline body for
// everything else.
func (s *NetworkFirst) Respond(ctx context.Context, req *http.Request) (*cachestore.Response, error) {
	resp, err := s.fetcher.Fetch(ctx, req)
	if err == nil {
		storeIfOK(ctx, s.cache, req, resp)
		resp.Source = cachestore.SourceNetwork
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if cached, ok := s.cache.Match(ctx, req); ok {
		cached.Source = cachestore.SourceCache
		return cached, nil
	}
	if classify.IsNavigation(req) {
		return s.fallback.Page(ctx), nil
	}
	return OfflineJSON(req), nil
}

var _ Strategy = (*NetworkFirst)(nil)
