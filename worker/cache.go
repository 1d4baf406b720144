package worker

import (
	"context"
	"net/http"

	"github.com/intakeworks/offlinekit/cachestore"
)

// boundCache resolves its named cache through the store on every call, the
// way pages resolve caches by name. A drop (clear-cache, activation sweep)
// therefore takes effect immediately even for held references, and the
// first use after a drop recreates the cache.
type boundCache struct {
	store cachestore.Store
	name  string
}

func (b boundCache) Match(ctx context.Context, req *http.Request) (*cachestore.Response, bool) {
	cache, err := b.store.Open(ctx, b.name)
	if err != nil {
		return nil, false
	}
	return cache.Match(ctx, req)
}

func (b boundCache) Put(ctx context.Context, req *http.Request, resp *cachestore.Response) error {
	cache, err := b.store.Open(ctx, b.name)
	if err != nil {
		return err
	}
	return cache.Put(ctx, req, resp)
}

func (b boundCache) Delete(ctx context.Context, req *http.Request) error {
	cache, err := b.store.Open(ctx, b.name)
	if err != nil {
		return err
	}
	return cache.Delete(ctx, req)
}

func (b boundCache) Keys(ctx context.Context) ([]string, error) {
	cache, err := b.store.Open(ctx, b.name)
	if err != nil {
		return nil, err
	}
	return cache.Keys(ctx)
}

var _ cachestore.Cache = boundCache{}
