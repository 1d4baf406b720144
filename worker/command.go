package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/intakeworks/offlinekit/cachestore"
	"github.com/intakeworks/offlinekit/message"
	"github.com/intakeworks/offlinekit/observe"
)

// handleMessage decodes one cross-process message and executes the command
// it carries. Unknown command types are ignored so a newer page build can
// keep talking to an older worker.
func (w *Worker) handleMessage(ctx context.Context, raw []byte) error {
	cmd, err := message.Decode(raw)
	if err != nil {
		return err
	}
	switch cmd.Type {
	case message.TypeSkipWaiting:
		return w.skipWaiting(ctx)
	case message.TypeClearCache:
		return w.clearCaches(ctx)
	case message.TypeCacheURLs:
		return w.prefetch(ctx, cmd.URLs)
	default:
		w.logger.Debug(ctx, "ignoring unknown command",
			observe.Field{Key: "type", Value: cmd.Type},
		)
		return nil
	}
}

// skipWaiting flags the build to activate without waiting and activates on
// the spot when install already finished.
func (w *Worker) skipWaiting(ctx context.Context) error {
	if !w.controller.SkipWaiting() {
		w.logger.Debug(ctx, "skip-waiting recorded before install finished",
			observe.Field{Key: "phase", Value: w.controller.Phase().String()},
		)
		return nil
	}
	return w.activate(ctx)
}

// clearCaches drops every named cache in the store, this build's included.
func (w *Worker) clearCaches(ctx context.Context) error {
	names, err := w.store.Names(ctx)
	if err != nil {
		return fmt.Errorf("worker: list caches: %w", err)
	}
	var errs []error
	for _, name := range names {
		if err := w.store.Drop(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("drop %s: %w", name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	w.logger.Info(ctx, "caches cleared",
		observe.Field{Key: "count", Value: len(names)},
	)
	return nil
}

// prefetch eagerly loads urls into the dynamic cache with bounded
// concurrency. Entries that fail to fetch or store are logged and counted,
// never fatal; only cancellation stops the pass.
func (w *Worker) prefetch(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	cache := boundCache{store: w.store, name: w.versions.Dynamic}

	var mu sync.Mutex
	cached, failed := 0, 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.prefetchLimit)
	for _, raw := range urls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := w.prefetchOne(gctx, cache, raw)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				w.logger.Warn(gctx, "prefetch entry failed",
					observe.Field{Key: "url", Value: raw},
					observe.Field{Key: "error", Value: err.Error()},
				)
				return nil
			}
			cached++
			return nil
		})
	}
	waitErr := g.Wait()
	w.logger.Info(ctx, "cache-urls finished",
		observe.Field{Key: "attempted", Value: len(urls)},
		observe.Field{Key: "cached", Value: cached},
		observe.Field{Key: "failed", Value: failed},
	)
	if waitErr != nil {
		return fmt.Errorf("worker: prefetch: %w", waitErr)
	}
	return nil
}

func (w *Worker) prefetchOne(ctx context.Context, cache cachestore.Cache, raw string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolveURL(w.origin, raw), nil)
	if err != nil {
		return err
	}
	resp, err := w.fetcher.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := cache.Put(ctx, req, resp); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	w.metrics.RecordFetch(ctx, "prefetch", "cache-urls", cachestore.SourceNetwork)
	return nil
}
