package strategy

import (
	"context"
	"net/http"

	"github.com/intakeworks/offlinekit/cachestore"
)

// Strategy answers a request from some combination of cache and network.
type Strategy interface {
	// Respond produces a response for req. The returned snapshot carries a
	// Source label describing where it came from. Network unreachability is
	// absorbed into the response, not returned as an error.
	Respond(ctx context.Context, req *http.Request) (*cachestore.Response, error)

	// Name identifies the strategy for logs and metrics.
	Name() string
}

// Spawner runs background work that must not block the response path.
// The function receives a context owned by the spawner, detached from the
// request that triggered it.
type Spawner interface {
	Spawn(fn func(ctx context.Context))
}

// SpawnerFunc adapts a function to the Spawner interface.
type SpawnerFunc func(fn func(ctx context.Context))

// Spawn calls s(fn).
func (s SpawnerFunc) Spawn(fn func(ctx context.Context)) { s(fn) }

// detachedSpawner runs fn on a fresh goroutine with a background context.
// Used when no spawner is injected.
type detachedSpawner struct{}

func (detachedSpawner) Spawn(fn func(ctx context.Context)) {
	go fn(context.Background())
}

// storeIfOK writes resp through to cache when it is a success. A full or
// broken cache must not fail a request the caller can already answer, so
// write errors are dropped.
func storeIfOK(ctx context.Context, cache cachestore.Cache, req *http.Request, resp *cachestore.Response) {
	if cache == nil || resp == nil || !resp.OK() {
		return
	}
	_ = cache.Put(ctx, req, resp)
}
