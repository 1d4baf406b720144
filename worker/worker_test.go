package worker

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/intakeworks/offlinekit/cachestore"
	"github.com/intakeworks/offlinekit/lifecycle"
	"github.com/intakeworks/offlinekit/observe"
	"github.com/intakeworks/offlinekit/push"
	"github.com/intakeworks/offlinekit/strategy"
	"github.com/intakeworks/offlinekit/syncqueue"
)

const testOrigin = "https://portal.example.com"

// originFetcher serves canned responses keyed by absolute URL and records
// every request it sees.
type originFetcher struct {
	mu    sync.Mutex
	resps map[string]*cachestore.Response
	errs  map[string]error
	err   error
	seen  []string
}

func newOriginFetcher() *originFetcher {
	return &originFetcher{
		resps: map[string]*cachestore.Response{},
		errs:  map[string]error{},
	}
}

func (f *originFetcher) Fetch(ctx context.Context, req *http.Request) (*cachestore.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, req.Method+" "+req.URL.String())
	if f.err != nil {
		return nil, f.err
	}
	if err, ok := f.errs[req.URL.String()]; ok {
		return nil, err
	}
	if resp, ok := f.resps[req.URL.String()]; ok {
		return resp.Clone(), nil
	}
	return &cachestore.Response{StatusCode: http.StatusNotFound, Body: []byte("not found")}, nil
}

func (f *originFetcher) serve(url, body string) {
	f.mu.Lock()
	f.resps[url] = &cachestore.Response{StatusCode: http.StatusOK, Body: []byte(body)}
	f.mu.Unlock()
}

func (f *originFetcher) failAll(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *originFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func (f *originFetcher) saw(line string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.seen {
		if s == line {
			return true
		}
	}
	return false
}

func newTestWorker(t *testing.T, mutate func(*Config)) (*Worker, *originFetcher, *cachestore.MemoryStore) {
	t.Helper()
	store := cachestore.NewMemoryStore(cachestore.Unlimited())
	fetcher := newOriginFetcher()
	cfg := Config{
		BuildTag: "v1",
		Origin:   testOrigin,
		Store:    store,
		Fetcher:  fetcher,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w, fetcher, store
}

func getReq(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("NewRequest(%q): %v", url, err)
	}
	return req
}

func navReq(t *testing.T, url string) *http.Request {
	t.Helper()
	req := getReq(t, url)
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	return req
}

func cacheEntry(t *testing.T, store cachestore.Store, name, url string) (*cachestore.Response, bool) {
	t.Helper()
	ctx := context.Background()
	cache, err := store.Open(ctx, name)
	if err != nil {
		t.Fatalf("Open(%q): %v", name, err)
	}
	return cache.Match(ctx, getReq(t, url))
}

func TestNewValidation(t *testing.T) {
	store := cachestore.NewMemoryStore(cachestore.Unlimited())
	fetcher := newOriginFetcher()
	base := func() Config {
		return Config{BuildTag: "v1", Store: store, Fetcher: fetcher}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty build tag", func(c *Config) { c.BuildTag = "" }},
		{"nil store", func(c *Config) { c.Store = nil }},
		{"nil fetcher", func(c *Config) { c.Fetcher = nil }},
		{"relative origin", func(c *Config) { c.Origin = "/portal" }},
		{"negative prefetch limit", func(c *Config) { c.PrefetchLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, ErrConfig) {
				t.Errorf("New error = %v, want ErrConfig", err)
			}
		})
	}

	w, err := New(base())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := w.Phase(); got != lifecycle.PhaseUninstalled {
		t.Errorf("Phase = %s, want uninstalled", got)
	}
}

func TestDispatchInstall(t *testing.T) {
	ctx := context.Background()
	w, fetcher, store := newTestWorker(t, func(c *Config) {
		c.Manifest = []string{"/offline.html", "/static/css/app.css"}
	})
	fetcher.serve(testOrigin+"/offline.html", "<h1>offline</h1>")
	fetcher.serve(testOrigin+"/static/css/app.css", "body{}")

	if err := w.Dispatch(ctx, InstallEvent{}); err != nil {
		t.Fatalf("Dispatch(install): %v", err)
	}
	if got := w.Phase(); got != lifecycle.PhaseInstalled {
		t.Errorf("Phase = %s, want installed", got)
	}
	if resp, ok := cacheEntry(t, store, "static-v1", testOrigin+"/offline.html"); !ok || string(resp.Body) != "<h1>offline</h1>" {
		t.Errorf("offline page not precached, got (%v, %v)", resp, ok)
	}
	if _, ok := cacheEntry(t, store, "static-v1", testOrigin+"/static/css/app.css"); !ok {
		t.Error("manifest asset not precached")
	}
}

func TestDispatchActivateEvictsOtherBuilds(t *testing.T) {
	ctx := context.Background()
	w, _, store := newTestWorker(t, nil)
	for _, name := range []string{"static-v0", "dynamic-v0", "api-v0"} {
		if _, err := store.Open(ctx, name); err != nil {
			t.Fatalf("Open(%q): %v", name, err)
		}
	}

	if err := w.Dispatch(ctx, InstallEvent{}); err != nil {
		t.Fatalf("Dispatch(install): %v", err)
	}
	if err := w.Dispatch(ctx, ActivateEvent{}); err != nil {
		t.Fatalf("Dispatch(activate): %v", err)
	}
	if got := w.Phase(); got != lifecycle.PhaseActive {
		t.Errorf("Phase = %s, want active", got)
	}

	names, err := store.Names(ctx)
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	for _, name := range names {
		if !w.Versions().Contains(name) {
			t.Errorf("cache %q survived activation", name)
		}
	}
}

func TestDispatchActivateWrongPhase(t *testing.T) {
	w, _, _ := newTestWorker(t, nil)
	err := w.Dispatch(context.Background(), ActivateEvent{})
	if !errors.Is(err, lifecycle.ErrPhase) {
		t.Errorf("Dispatch(activate) error = %v, want ErrPhase", err)
	}
}

func TestDispatchFetchRoutesByCategory(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		nav       bool
		wantCache string
	}{
		{"static asset to static cache", "/static/css/app.css", false, "static-v1"},
		{"api call to api cache", "/portal/api/items", false, "api-v1"},
		{"navigation to dynamic cache", "/portal/home", true, "dynamic-v1"},
		{"uncategorized to dynamic cache", "/downloads/report.pdf", false, "dynamic-v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			w, fetcher, store := newTestWorker(t, nil)
			url := testOrigin + tt.path
			fetcher.serve(url, "payload:"+tt.path)

			req := getReq(t, url)
			if tt.nav {
				req = navReq(t, url)
			}
			resp, err := w.HandleFetch(ctx, req)
			if err != nil {
				t.Fatalf("HandleFetch: %v", err)
			}
			if string(resp.Body) != "payload:"+tt.path {
				t.Errorf("body = %q, want the origin payload", resp.Body)
			}
			if resp.Source != cachestore.SourceNetwork {
				t.Errorf("Source = %q, want network", resp.Source)
			}
			if _, ok := cacheEntry(t, store, tt.wantCache, url); !ok {
				t.Errorf("response not stored in %s", tt.wantCache)
			}
		})
	}
}

func TestDispatchFetchRelativeURLResolvesAgainstOrigin(t *testing.T) {
	ctx := context.Background()
	w, fetcher, store := newTestWorker(t, nil)
	fetcher.serve(testOrigin+"/static/css/app.css", "body{}")

	resp, err := w.HandleFetch(ctx, getReq(t, "/static/css/app.css"))
	if err != nil {
		t.Fatalf("HandleFetch: %v", err)
	}
	if string(resp.Body) != "body{}" {
		t.Errorf("body = %q, want the origin payload", resp.Body)
	}
	// Stored under the absolute identity, so precache and fetch agree.
	if _, ok := cacheEntry(t, store, "static-v1", testOrigin+"/static/css/app.css"); !ok {
		t.Error("entry not stored under the absolute URL")
	}
}

func TestDispatchFetchPassThrough(t *testing.T) {
	t.Run("non-GET", func(t *testing.T) {
		ctx := context.Background()
		w, fetcher, _ := newTestWorker(t, nil)
		url := testOrigin + "/portal/api/messages"
		fetcher.serve(url, "created")

		req, _ := http.NewRequest(http.MethodPost, url, strings.NewReader(`{"text":"hi"}`))
		resp, err := w.HandleFetch(ctx, req)
		if err != nil {
			t.Fatalf("HandleFetch: %v", err)
		}
		if string(resp.Body) != "created" {
			t.Errorf("body = %q, want the origin payload", resp.Body)
		}
		if !fetcher.saw("POST " + url) {
			t.Error("request did not reach the fetcher")
		}
	})

	t.Run("cross-origin", func(t *testing.T) {
		ctx := context.Background()
		w, fetcher, store := newTestWorker(t, nil)
		url := "https://cdn.elsewhere.example.org/widget.js"
		fetcher.serve(url, "widget")

		resp, err := w.HandleFetch(ctx, getReq(t, url))
		if err != nil {
			t.Fatalf("HandleFetch: %v", err)
		}
		if string(resp.Body) != "widget" {
			t.Errorf("body = %q, want the origin payload", resp.Body)
		}
		for _, name := range w.Versions().Names() {
			if resp, ok := cacheEntry(t, store, name, url); ok {
				t.Errorf("cross-origin response cached in %s: %v", name, resp)
			}
		}
	})

	t.Run("network failure propagates", func(t *testing.T) {
		ctx := context.Background()
		w, fetcher, _ := newTestWorker(t, nil)
		netErr := errors.New("connection refused")
		fetcher.failAll(netErr)

		req, _ := http.NewRequest(http.MethodPost, testOrigin+"/portal/api/messages", nil)
		if _, err := w.HandleFetch(ctx, req); !errors.Is(err, netErr) {
			t.Errorf("HandleFetch error = %v, want the network error", err)
		}
	})
}

func TestDispatchFetchOfflineNavigation(t *testing.T) {
	t.Run("built-in page", func(t *testing.T) {
		ctx := context.Background()
		w, fetcher, _ := newTestWorker(t, nil)
		fetcher.failAll(errors.New("no route to host"))

		resp, err := w.HandleFetch(ctx, navReq(t, testOrigin+"/portal/anywhere"))
		if err != nil {
			t.Fatalf("HandleFetch: %v", err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", resp.StatusCode)
		}
		if resp.Header.Get(strategy.OfflineHeader) != "1" {
			t.Errorf("missing %s marker", strategy.OfflineHeader)
		}
		if !strings.Contains(string(resp.Body), "offline") {
			t.Errorf("body = %q, want the offline page", resp.Body)
		}
		if resp.Source != cachestore.SourceFallback {
			t.Errorf("Source = %q, want fallback", resp.Source)
		}
	})

	t.Run("precached page", func(t *testing.T) {
		ctx := context.Background()
		w, fetcher, _ := newTestWorker(t, func(c *Config) {
			c.Manifest = []string{"/offline.html"}
			c.OfflinePageURL = "/offline.html"
		})
		fetcher.serve(testOrigin+"/offline.html", "<h1>catalog offline</h1>")
		if err := w.Dispatch(ctx, InstallEvent{}); err != nil {
			t.Fatalf("Dispatch(install): %v", err)
		}
		fetcher.failAll(errors.New("no route to host"))

		resp, err := w.HandleFetch(ctx, navReq(t, testOrigin+"/portal/anywhere"))
		if err != nil {
			t.Fatalf("HandleFetch: %v", err)
		}
		if string(resp.Body) != "<h1>catalog offline</h1>" {
			t.Errorf("body = %q, want the precached page", resp.Body)
		}
		if resp.Source != cachestore.SourceFallback {
			t.Errorf("Source = %q, want fallback", resp.Source)
		}
	})
}

func TestDispatchFetchOfflineAPI(t *testing.T) {
	ctx := context.Background()
	w, fetcher, _ := newTestWorker(t, nil)
	fetcher.failAll(errors.New("no route to host"))

	resp, err := w.HandleFetch(ctx, getReq(t, testOrigin+"/portal/api/items"))
	if err != nil {
		t.Fatalf("HandleFetch: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Errorf("Content-Type = %q, want JSON", got)
	}
	if resp.Header.Get(strategy.OfflineHeader) != "1" {
		t.Errorf("missing %s marker", strategy.OfflineHeader)
	}
}

// TestDispatchSettlesRevalidation pins the extend-lifetime contract: when
// Dispatch returns, the background refresh a stale-while-revalidate route
// started has already been written through.
func TestDispatchSettlesRevalidation(t *testing.T) {
	ctx := context.Background()
	w, fetcher, store := newTestWorker(t, nil)
	url := testOrigin + "/portal/home"

	dyn, err := store.Open(ctx, "dynamic-v1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := dyn.Put(ctx, getReq(t, url), &cachestore.Response{StatusCode: http.StatusOK, Body: []byte("stale")}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	fetcher.serve(url, "fresh")

	resp, err := w.HandleFetch(ctx, navReq(t, url))
	if err != nil {
		t.Fatalf("HandleFetch: %v", err)
	}
	if string(resp.Body) != "stale" {
		t.Fatalf("body = %q, want the stale copy served first", resp.Body)
	}
	if resp.Source != cachestore.SourceCache {
		t.Errorf("Source = %q, want cache", resp.Source)
	}

	// No sleeping: Dispatch only returns after background tasks settle.
	refreshed, ok := cacheEntry(t, store, "dynamic-v1", url)
	if !ok || string(refreshed.Body) != "fresh" {
		t.Fatalf("cache after dispatch = (%v, %v), want the refreshed copy", refreshed, ok)
	}
}

func TestFetchEventResponse(t *testing.T) {
	ctx := context.Background()
	w, fetcher, _ := newTestWorker(t, nil)
	url := testOrigin + "/static/app.js"
	fetcher.serve(url, "console.log(1)")

	ev := NewFetchEvent(getReq(t, url))
	if ev.Response() != nil {
		t.Fatal("Response set before dispatch")
	}
	if err := w.Dispatch(ctx, ev); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := ev.Response(); got == nil || string(got.Body) != "console.log(1)" {
		t.Errorf("Response = %v, want the fetched body", got)
	}
}

func TestDispatchPush(t *testing.T) {
	ctx := context.Background()
	notifier := push.NewMemoryNotifier()
	clients := push.NewMemoryClients()
	handler, err := push.NewHandler(push.Config{Notifier: notifier, Clients: clients, Origin: testOrigin})
	if err != nil {
		t.Fatalf("push.NewHandler: %v", err)
	}
	w, _, _ := newTestWorker(t, func(c *Config) { c.Push = handler })

	payload := []byte(`{"title":"New message","tag":"msg-7"}`)
	if err := w.Dispatch(ctx, PushEvent{Payload: payload}); err != nil {
		t.Fatalf("Dispatch(push): %v", err)
	}
	active := notifier.Active()
	if len(active) != 1 {
		t.Fatalf("active notifications = %d, want exactly 1", len(active))
	}
	if active[0].Title != "New message" || active[0].Tag != "msg-7" {
		t.Errorf("notification = %+v, want payload fields", active[0])
	}
}

func TestDispatchPushWithoutHandler(t *testing.T) {
	w, _, _ := newTestWorker(t, nil)
	if err := w.Dispatch(context.Background(), PushEvent{Payload: []byte(`{}`)}); err != nil {
		t.Errorf("Dispatch(push) without handler = %v, want nil", err)
	}
}

func TestDispatchSync(t *testing.T) {
	ctx := context.Background()
	registry := syncqueue.NewRegistry(nil)
	var ran int
	registry.Register(syncqueue.TagMessages, func(ctx context.Context) error {
		ran++
		return nil
	})
	registry.Register(syncqueue.TagDocuments, func(ctx context.Context) error {
		return errors.New("still offline")
	})
	w, _, _ := newTestWorker(t, func(c *Config) { c.Sync = registry })

	if err := w.Dispatch(ctx, SyncEvent{Tag: syncqueue.TagMessages}); err != nil {
		t.Fatalf("Dispatch(sync): %v", err)
	}
	if ran != 1 {
		t.Errorf("handler ran %d times, want 1", ran)
	}
	if err := w.Dispatch(ctx, SyncEvent{Tag: syncqueue.TagDocuments}); !errors.Is(err, syncqueue.ErrReplayFailed) {
		t.Errorf("failing sync error = %v, want ErrReplayFailed", err)
	}
	if err := w.Dispatch(ctx, SyncEvent{Tag: "sync-unknown"}); err != nil {
		t.Errorf("unknown tag error = %v, want nil", err)
	}
}

func TestDispatchRejectsUnknownEvents(t *testing.T) {
	w, _, _ := newTestWorker(t, nil)
	if err := w.Dispatch(context.Background(), nil); !errors.Is(err, ErrEvent) {
		t.Errorf("nil event error = %v, want ErrEvent", err)
	}
	if err := w.Dispatch(context.Background(), bogusEvent{}); !errors.Is(err, ErrEvent) {
		t.Errorf("bogus event error = %v, want ErrEvent", err)
	}
}

type bogusEvent struct{}

func (bogusEvent) Kind() string { return "bogus" }

func TestDispatchCanceledContext(t *testing.T) {
	w, fetcher, _ := newTestWorker(t, nil)
	fetcher.failAll(errors.New("unreachable"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.HandleFetch(ctx, getReq(t, testOrigin+"/static/app.css"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("HandleFetch error = %v, want context.Canceled", err)
	}
}

// spanlessTracer satisfies observe.Tracer with no-op spans so tests can pair
// a real Middleware with counting metrics.
type spanlessTracer struct {
	tracer trace.Tracer
}

func newSpanlessTracer() *spanlessTracer {
	return &spanlessTracer{tracer: tracenoop.NewTracerProvider().Tracer("test")}
}

func (t *spanlessTracer) StartSpan(ctx context.Context, meta observe.EventMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName())
}

func (t *spanlessTracer) EndSpan(span trace.Span, err error) { span.End() }

type countingMetrics struct {
	mu      sync.Mutex
	events  []observe.EventMeta
	errs    int
	fetches [][3]string
}

func (m *countingMetrics) RecordEvent(ctx context.Context, meta observe.EventMeta, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, meta)
	if err != nil {
		m.errs++
	}
}

func (m *countingMetrics) RecordFetch(ctx context.Context, category, strategy, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches = append(m.fetches, [3]string{category, strategy, source})
}

func TestDispatchRecordsTelemetry(t *testing.T) {
	ctx := context.Background()
	metrics := &countingMetrics{}
	mw := observe.NewMiddleware(newSpanlessTracer(), metrics, observe.NopLogger())
	w, fetcher, _ := newTestWorker(t, func(c *Config) { c.Middleware = mw })
	url := testOrigin + "/static/css/app.css"
	fetcher.serve(url, "body{}")

	if _, err := w.HandleFetch(ctx, getReq(t, url)); err != nil {
		t.Fatalf("HandleFetch: %v", err)
	}

	if len(metrics.events) != 1 {
		t.Fatalf("recorded events = %d, want 1", len(metrics.events))
	}
	meta := metrics.events[0]
	if meta.Kind != "fetch" || meta.Category != "static-asset" || meta.Strategy != "cache-first" {
		t.Errorf("event meta = %+v, want fetch/static-asset/cache-first", meta)
	}
	if len(metrics.fetches) != 1 {
		t.Fatalf("recorded fetches = %d, want 1", len(metrics.fetches))
	}
	if got := metrics.fetches[0]; got != [3]string{"static-asset", "cache-first", "network"} {
		t.Errorf("fetch labels = %v", got)
	}
	if metrics.errs != 0 {
		t.Errorf("error count = %d, want 0", metrics.errs)
	}
}

func TestWaitUntilAndSettle(t *testing.T) {
	w, _, _ := newTestWorker(t, nil)

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 5; i++ {
		w.WaitUntil(func(ctx context.Context) {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	if err := w.Settle(context.Background()); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if ran != 5 {
		t.Errorf("ran = %d, want all 5 tasks finished", ran)
	}
}

func TestSettleHonorsContext(t *testing.T) {
	w, _, _ := newTestWorker(t, nil)
	release := make(chan struct{})
	w.WaitUntil(func(ctx context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := w.Settle(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Settle error = %v, want deadline exceeded", err)
	}
	close(release)
	if err := w.Settle(context.Background()); err != nil {
		t.Fatalf("second Settle: %v", err)
	}
}
