package strategy

import (
	"context"
	"net/http"

	"github.com/intakeworks/offlinekit/cachestore"
)

// CacheFirst serves from its cache and touches the network only on a miss.
// Suited to fingerprinted static assets that never change under one URL.
type CacheFirst struct {
	cache   cachestore.Cache
	fetcher Fetcher
}

// NewCacheFirst returns a cache-first strategy over cache and fetcher.
func NewCacheFirst(cache cachestore.Cache, fetcher Fetcher) *CacheFirst {
	return &CacheFirst{cache: cache, fetcher: fetcher}
}

// Name reports "cache-first".
func (s *CacheFirst) Name() string { return "cache-first" }

// Respond checks the cache, then the network. A fresh success is written
// back to the cache before it is returned. When both sides come up empty the
// caller gets a synthetic offline response.
func (s *CacheFirst) Respond(ctx context.Context, req *http.Request) (*cachestore.Response, error) {
	if resp, ok := s.cache.Match(ctx, req); ok {
		resp.Source = cachestore.SourceCache
		return resp, nil
	}
	resp, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return OfflineJSON(req), nil
	}
	storeIfOK(ctx, s.cache, req, resp)
	resp.Source = cachestore.SourceNetwork
	return resp, nil
}

var _ Strategy = (*CacheFirst)(nil)
