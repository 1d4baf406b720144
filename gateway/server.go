package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/intakeworks/offlinekit/cachestore"
	"github.com/intakeworks/offlinekit/health"
	"github.com/intakeworks/offlinekit/observe"
	"github.com/intakeworks/offlinekit/outbox"
	"github.com/intakeworks/offlinekit/push"
	"github.com/intakeworks/offlinekit/strategy"
	"github.com/intakeworks/offlinekit/syncqueue"
	"github.com/intakeworks/offlinekit/worker"
)

// readHeaderTimeout bounds reading request headers on the listener.
const readHeaderTimeout = 5 * time.Second

// Server is the gateway daemon: one worker, its deferred-request pipeline,
// and the health surface behind a single listener.
//
// Contract:
//   - Concurrency: the handler serves concurrent requests once NewServer
//     returns.
//   - Context: ListenAndServe blocks until ctx is done, then drains
//     in-flight requests within the configured shutdown timeout.
//   - Errors: ListenAndServe returns nil after a clean drain; Close reports
//     whatever the telemetry providers and the outbox database failed to
//     release.
type Server struct {
	cfg        Config
	httpServer *http.Server
	worker     *worker.Worker
	scheduler  *syncqueue.Scheduler
	notifier   *push.MemoryNotifier
	observer   observe.Observer
	logger     observe.Logger
	sqlite     *outbox.SQLiteStore
}

// NewServer wires the worker and its surroundings from cfg and installs the
// build. Install fetches the precache manifest, so the given context should
// carry whatever deadline the caller wants on startup I/O.
//
// A failed install is not fatal: the worker stays uninstalled, /readyz
// reports it, and anything a previous run of the same build persisted still
// serves.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	obs, err := observe.NewObserver(ctx, cfg.observeConfig())
	if err != nil {
		return nil, fmt.Errorf("gateway: observer: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, fmt.Errorf("gateway: middleware: %w", err)
	}
	logger := obs.Logger().WithComponent("gateway")

	var store cachestore.Store
	if cfg.CacheURL != "" {
		store = cachestore.NewAFSStore(cfg.CacheURL, cachestore.DefaultLimits())
	} else {
		store = cachestore.NewMemoryStore(cachestore.DefaultLimits())
	}

	var queue outbox.Store
	var sqlite *outbox.SQLiteStore
	if cfg.OutboxPath != "" {
		sqlite, err = outbox.OpenSQLite(cfg.OutboxPath)
		if err != nil {
			return nil, fmt.Errorf("gateway: open outbox: %w", err)
		}
		queue = sqlite
	} else {
		queue = outbox.NewMemoryStore()
	}
	closeOutbox := func() {
		if sqlite != nil {
			_ = sqlite.Close()
		}
	}

	fetcher := strategy.NewHTTPFetcher(&http.Client{Timeout: cfg.FetchTimeout})

	registry := syncqueue.NewRegistry(obs.Logger())
	for _, tag := range cfg.SyncTags {
		replayer, err := outbox.NewReplayer(queue, fetcher, tag, obs.Logger())
		if err != nil {
			closeOutbox()
			return nil, fmt.Errorf("gateway: replayer for %q: %w", tag, err)
		}
		registry.Register(tag, replayer.Handler())
	}
	scheduler, err := syncqueue.NewScheduler(syncqueue.SchedulerConfig{
		Registry: registry,
		Logger:   obs.Logger(),
	})
	if err != nil {
		closeOutbox()
		return nil, fmt.Errorf("gateway: scheduler: %w", err)
	}

	notifier := push.NewMemoryNotifier()
	pusher, err := push.NewHandler(push.Config{
		Notifier: notifier,
		Clients:  push.NewMemoryClients(),
		Origin:   cfg.Worker.Origin,
	})
	if err != nil {
		closeOutbox()
		return nil, fmt.Errorf("gateway: push handler: %w", err)
	}

	wcfg := cfg.Worker
	wcfg.Store = store
	wcfg.Fetcher = fetcher
	wcfg.Push = pusher
	wcfg.Sync = registry
	wcfg.Logger = obs.Logger()
	wcfg.Middleware = mw
	wk, err := worker.New(wcfg)
	if err != nil {
		closeOutbox()
		return nil, fmt.Errorf("gateway: %w", err)
	}

	var origin *url.URL
	if cfg.Worker.Origin != "" {
		origin, err = url.Parse(cfg.Worker.Origin)
		if err != nil {
			closeOutbox()
			return nil, fmt.Errorf("%w: origin %q is not a URL", ErrConfig, cfg.Worker.Origin)
		}
	}

	if err := wk.Dispatch(ctx, worker.InstallEvent{}); err != nil {
		logger.Warn(ctx, "install failed, serving with cold caches",
			observe.Field{Key: "tag", Value: wk.Versions().Tag},
			observe.Field{Key: "error", Value: err.Error()},
		)
	} else if err := wk.Dispatch(ctx, worker.ActivateEvent{}); err != nil {
		closeOutbox()
		return nil, fmt.Errorf("gateway: activate: %w", err)
	}

	agg := health.NewAggregator(health.AggregatorConfig{})
	agg.Register(health.NewWorkerChecker(wk))
	agg.Register(health.NewCacheChecker(store))
	agg.Register(health.NewQueueChecker(queue, health.QueueCheckerConfig{}))
	if sqlite != nil {
		agg.Register(health.NewPingChecker("outbox-db", sqlite))
	}

	h := &handler{
		worker:    wk,
		queue:     queue,
		scheduler: scheduler,
		tags:      tagSet(cfg.SyncTags),
		origin:    origin,
		notifier:  notifier,
		logger:    logger,
	}

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h.routes(agg, wk.Versions().Tag),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		worker:    wk,
		scheduler: scheduler,
		notifier:  notifier,
		observer:  obs,
		logger:    logger,
		sqlite:    sqlite,
	}, nil
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		set[tag] = true
	}
	return set
}

// Handler returns the gateway's HTTP surface, for hosts that mount it on a
// listener of their own.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// ListenAndServe runs the listener and the replay scheduler until ctx is
// done.
//
// On cancellation it performs a bounded shutdown so in-flight requests are
// drained before hard close.
func (s *Server) ListenAndServe(ctx context.Context) error {
	schedCtx, stopScheduler := context.WithCancel(ctx)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		// Run only ever returns schedCtx.Err().
		_ = s.scheduler.Run(schedCtx)
	}()
	defer func() {
		stopScheduler()
		<-schedDone
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()
	s.logger.Info(ctx, "gateway listening",
		observe.Field{Key: "addr", Value: s.cfg.Addr},
		observe.Field{Key: "tag", Value: s.worker.Versions().Tag},
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("gateway: shutdown: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway: serve: %w", err)
	}
}

// Close releases the telemetry providers, the outbox database, and the
// notifier. Call it after ListenAndServe returns.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	var errs []error
	if err := s.observer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown observer: %w", err))
	}
	if s.sqlite != nil {
		if err := s.sqlite.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close outbox: %w", err))
		}
	}
	s.notifier.Shutdown()
	return errors.Join(errs...)
}
