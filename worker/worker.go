package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/intakeworks/offlinekit/cachestore"
	"github.com/intakeworks/offlinekit/classify"
	"github.com/intakeworks/offlinekit/lifecycle"
	"github.com/intakeworks/offlinekit/message"
	"github.com/intakeworks/offlinekit/observe"
	"github.com/intakeworks/offlinekit/push"
	"github.com/intakeworks/offlinekit/strategy"
	"github.com/intakeworks/offlinekit/syncqueue"
)

// ErrEvent indicates a dispatch with an event the worker cannot handle.
var ErrEvent = errors.New("worker: unsupported event")

// Worker reacts to platform events for one build of the application.
//
// Contract:
//   - Concurrency: safe for concurrent dispatches.
//   - Context: Dispatch honors ctx for the handler and the settle wait.
//     Background tasks run detached from it.
//   - Errors: fetch handling absorbs network unreachability into synthetic
//     responses; the remaining handlers propagate their failures.
type Worker struct {
	store         cachestore.Store
	fetcher       strategy.Fetcher
	classifier    *classify.Classifier
	controller    *lifecycle.Controller
	versions      lifecycle.VersionSet
	routes        map[classify.Category]strategy.Strategy
	pusher        *push.Handler
	syncs         *syncqueue.Registry
	logger        observe.Logger
	middleware    *observe.Middleware
	metrics       observe.Metrics
	origin        *url.URL
	prefetchLimit int

	tasks taskGroup
}

// New validates cfg and assembles a worker in the uninstalled phase.
func New(cfg Config) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	metrics := observe.NopMetrics()
	if cfg.Middleware != nil {
		metrics = cfg.Middleware.Metrics()
	}
	if cfg.PrefetchLimit == 0 {
		cfg.PrefetchLimit = defaultPrefetchLimit
	}
	if cfg.OfflinePageURL == "" {
		cfg.OfflinePageURL = defaultOfflinePage
	}

	var origin *url.URL
	if cfg.Origin != "" {
		origin, _ = url.Parse(cfg.Origin)
	}
	manifest := make([]string, 0, len(cfg.Manifest))
	for _, entry := range cfg.Manifest {
		manifest = append(manifest, resolveURL(origin, entry))
	}

	versions := lifecycle.NewVersionSet(cfg.BuildTag)
	controller, err := lifecycle.NewController(lifecycle.Config{
		Store:       cfg.Store,
		Fetcher:     cfg.Fetcher,
		Versions:    versions,
		Manifest:    manifest,
		Claimer:     cfg.Claimer,
		Concurrency: cfg.PrefetchLimit,
	})
	if err != nil {
		return nil, err
	}

	w := &Worker{
		store:         cfg.Store,
		fetcher:       cfg.Fetcher,
		controller:    controller,
		versions:      versions,
		pusher:        cfg.Push,
		syncs:         cfg.Sync,
		logger:        logger.WithComponent("worker"),
		middleware:    cfg.Middleware,
		metrics:       metrics,
		origin:        origin,
		prefetchLimit: cfg.PrefetchLimit,
	}

	w.classifier = classify.New(classify.Rules{
		Origin:      cfg.Origin,
		APIPrefixes: cfg.APIPrefixes,
		StaticRoots: cfg.StaticRoots,
		ShellRoots:  cfg.ShellRoots,
	})

	static := boundCache{store: cfg.Store, name: versions.Static}
	dynamic := boundCache{store: cfg.Store, name: versions.Dynamic}
	api := boundCache{store: cfg.Store, name: versions.API}
	fallback := strategy.NewFallback(static, resolveURL(origin, cfg.OfflinePageURL))
	spawner := strategy.SpawnerFunc(w.WaitUntil)

	w.routes = map[classify.Category]strategy.Strategy{
		classify.CategoryStatic: strategy.NewCacheFirst(static, cfg.Fetcher),
		classify.CategoryAPI:    strategy.NewNetworkFirst(api, cfg.Fetcher, fallback),
		classify.CategoryPage:   strategy.NewStaleWhileRevalidate(dynamic, cfg.Fetcher, fallback, spawner),
		classify.CategoryOther:  strategy.NewNetworkFirst(dynamic, cfg.Fetcher, fallback),
	}
	return w, nil
}

// Phase returns the lifecycle phase of this worker's build.
func (w *Worker) Phase() lifecycle.Phase { return w.controller.Phase() }

// Versions returns the cache names owned by this worker's build.
func (w *Worker) Versions() lifecycle.VersionSet { return w.versions }

// WaitUntil runs fn in the background and extends the lifetime of the
// current dispatch until fn returns. fn receives a fresh context because
// the work outlives the event that spawned it.
func (w *Worker) WaitUntil(fn func(ctx context.Context)) {
	w.tasks.add()
	go func() {
		defer w.tasks.done()
		fn(context.Background())
	}()
}

// Settle blocks until every background task registered so far has finished
// or ctx is done.
func (w *Worker) Settle(ctx context.Context) error {
	return w.tasks.wait(ctx)
}

// Dispatch routes ev to its handler and returns once the handler and every
// background task it registered have settled. The error is the handler's.
func (w *Worker) Dispatch(ctx context.Context, ev Event) error {
	if ev == nil {
		return fmt.Errorf("%w: nil event", ErrEvent)
	}
	fn := func(ctx context.Context, _ observe.EventMeta) error {
		err := w.handle(ctx, ev)
		if serr := w.Settle(ctx); serr != nil {
			return errors.Join(err, fmt.Errorf("worker: settle: %w", serr))
		}
		return err
	}
	if w.middleware != nil {
		fn = w.middleware.Wrap(fn)
	}
	return fn(ctx, w.metaFor(ev))
}

// HandleFetch is the direct form of dispatching a FetchEvent.
func (w *Worker) HandleFetch(ctx context.Context, req *http.Request) (*cachestore.Response, error) {
	ev := NewFetchEvent(req)
	if err := w.Dispatch(ctx, ev); err != nil {
		return nil, err
	}
	return ev.Response(), nil
}

func (w *Worker) handle(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case InstallEvent:
		return w.install(ctx)
	case ActivateEvent:
		return w.activate(ctx)
	case *FetchEvent:
		resp, err := w.respond(ctx, e.Request)
		if err != nil {
			return err
		}
		e.resp = resp
		return nil
	case PushEvent:
		return w.handlePush(ctx, e.Payload)
	case InteractionEvent:
		return w.handleInteraction(ctx, e.Interaction)
	case SyncEvent:
		return w.handleSync(ctx, e.Tag)
	case MessageEvent:
		return w.handleMessage(ctx, e.Data)
	default:
		return fmt.Errorf("%w: %T", ErrEvent, ev)
	}
}

// metaFor builds the span and metric metadata for ev. Classification runs
// here so fetch spans carry their category and strategy from the start.
func (w *Worker) metaFor(ev Event) observe.EventMeta {
	meta := observe.EventMeta{Kind: ev.Kind()}
	switch e := ev.(type) {
	case *FetchEvent:
		if e.Request == nil {
			return meta
		}
		meta.Detail = e.Request.URL.Path
		if w.classifier.Intercepts(e.Request) {
			cat := w.classifier.Category(e.Request)
			meta.Category = cat.String()
			if route, ok := w.routes[cat]; ok {
				meta.Strategy = route.Name()
			}
		}
	case SyncEvent:
		meta.Detail = e.Tag
	case MessageEvent:
		if cmd, err := message.Decode(e.Data); err == nil {
			meta.Detail = cmd.Type
		}
	case InteractionEvent:
		meta.Detail = e.Interaction.Action
	case InstallEvent, ActivateEvent:
		meta.Detail = w.versions.Tag
	}
	return meta
}

func (w *Worker) install(ctx context.Context) error {
	stats, err := w.controller.Install(ctx)
	if err != nil {
		return err
	}
	w.logger.Info(ctx, "install complete",
		observe.Field{Key: "tag", Value: w.versions.Tag},
		observe.Field{Key: "attempted", Value: stats.Attempted},
		observe.Field{Key: "cached", Value: stats.Cached},
		observe.Field{Key: "failed", Value: len(stats.Failed)},
	)
	for _, failure := range stats.Failed {
		w.logger.Warn(ctx, "precache entry failed",
			observe.Field{Key: "url", Value: failure.URL},
			observe.Field{Key: "error", Value: failure.Err.Error()},
		)
	}
	if w.controller.SkipRequested() {
		return w.activate(ctx)
	}
	return nil
}

func (w *Worker) activate(ctx context.Context) error {
	dropped, err := w.controller.Activate(ctx)
	if err != nil {
		return err
	}
	w.logger.Info(ctx, "activated",
		observe.Field{Key: "tag", Value: w.versions.Tag},
		observe.Field{Key: "dropped", Value: dropped},
	)
	return nil
}

// respond answers one fetch. Intercepted requests go through the category's
// strategy; everything else passes straight through the fetcher.
func (w *Worker) respond(ctx context.Context, req *http.Request) (*cachestore.Response, error) {
	if req == nil || req.URL == nil {
		return nil, fmt.Errorf("%w: fetch event carries no request", ErrEvent)
	}
	// Server-side requests arrive with relative URLs. Make them absolute so
	// cache identities line up with precached entries and the fetcher has a
	// reachable target.
	if req.URL.Host == "" && w.origin != nil {
		clone := req.Clone(ctx)
		clone.URL = w.origin.ResolveReference(req.URL)
		req = clone
	}
	if !w.classifier.Intercepts(req) {
		resp, err := w.fetcher.Fetch(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("worker: pass through %s: %w", req.URL, err)
		}
		resp.Source = cachestore.SourceNetwork
		w.metrics.RecordFetch(ctx, "pass-through", "none", resp.Source)
		return resp, nil
	}

	category := w.classifier.Category(req)
	route := w.routes[category]
	resp, err := route.Respond(ctx, req)
	if err != nil {
		return nil, err
	}
	w.metrics.RecordFetch(ctx, category.String(), route.Name(), resp.Source)
	return resp, nil
}

func (w *Worker) handlePush(ctx context.Context, payload []byte) error {
	if w.pusher == nil {
		w.logger.Warn(ctx, "push event with no push handler configured")
		return nil
	}
	shown, err := w.pusher.HandlePush(ctx, payload)
	if err != nil {
		return err
	}
	w.logger.Debug(ctx, "notification shown",
		observe.Field{Key: "id", Value: shown.ID},
		observe.Field{Key: "tag", Value: shown.Notification.Tag},
	)
	return nil
}

func (w *Worker) handleInteraction(ctx context.Context, in push.Interaction) error {
	if w.pusher == nil {
		w.logger.Warn(ctx, "interaction event with no push handler configured")
		return nil
	}
	return w.pusher.HandleInteraction(ctx, in)
}

func (w *Worker) handleSync(ctx context.Context, tag string) error {
	if w.syncs == nil {
		w.logger.Warn(ctx, "sync event with no registry configured",
			observe.Field{Key: "tag", Value: tag},
		)
		return nil
	}
	return w.syncs.Dispatch(ctx, tag)
}
