package strategy

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/intakeworks/offlinekit/cachestore"
)

// OfflineHeader marks synthetic responses produced while the origin was
// unreachable. Clients can use it to distinguish a real 503 from an
// offline placeholder.
const OfflineHeader = "X-Offline"

// builtinOfflinePage is served as a last resort when no offline page was
// precached.
const builtinOfflinePage = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Offline</title></head>
<body>
<h1>You are offline</h1>
<p>This page is not available without a network connection.</p>
</body>
</html>
`

// OfflineJSON builds the synthetic response returned for non-navigation
// requests when neither the network nor the cache can answer.
func OfflineJSON(req *http.Request) *cachestore.Response {
	body, _ := json.Marshal(map[string]string{
		"error":   "offline",
		"message": "the origin is unreachable and no cached copy exists",
		"url":     req.URL.String(),
	})
	header := http.Header{}
	header.Set("Content-Type", "application/json; charset=utf-8")
	header.Set("Cache-Control", "no-store")
	header.Set(OfflineHeader, "1")
	return &cachestore.Response{
		StatusCode: http.StatusServiceUnavailable,
		Header:     header,
		Body:       body,
		URL:        req.URL.String(),
		Source:     cachestore.SourceFallback,
	}
}

// Fallback resolves the offline page served to navigations that cannot be
// answered. It prefers the precached page and degrades to a built-in one.
type Fallback struct {
	static  cachestore.Cache
	pageURL string
}

// NewFallback returns a Fallback reading pageURL from static. Either may be
// zero; the built-in page then covers the gap.
func NewFallback(static cachestore.Cache, pageURL string) *Fallback {
	return &Fallback{static: static, pageURL: pageURL}
}

// Page returns the offline page. The cached copy keeps its stored status;
// the built-in copy reports service unavailable.
func (f *Fallback) Page(ctx context.Context) *cachestore.Response {
	if f != nil && f.static != nil && f.pageURL != "" {
		if req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.pageURL, nil); err == nil {
			if resp, ok := f.static.Match(ctx, req); ok {
				resp.Source = cachestore.SourceFallback
				return resp
			}
		}
	}
	header := http.Header{}
	header.Set("Content-Type", "text/html; charset=utf-8")
	header.Set("Cache-Control", "no-store")
	header.Set(OfflineHeader, "1")
	return &cachestore.Response{
		StatusCode: http.StatusServiceUnavailable,
		Header:     header,
		Body:       []byte(builtinOfflinePage),
		Source:     cachestore.SourceFallback,
	}
}
