package cachestore

import (
	"io"
	"net/http"
	"time"
)

// Response is a stored snapshot of an HTTP response: status, headers, and a
// fully drained body. The same type flows back out of the strategy engine, so
// a cached entry and a fresh network result are interchangeable to callers.
type Response struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"headers,omitempty"`
	Body       []byte      `json:"body,omitempty"`

	// URL is the final request URL the response was produced for.
	URL string `json:"url,omitempty"`

	// StoredAt is when the snapshot was written to a cache. Zero for
	// responses that never passed through one.
	StoredAt time.Time `json:"stored_at"`

	// Source labels where the response came from on its way back to the
	// caller. Set by the strategy engine, never persisted.
	Source string `json:"-"`
}

// Source values attached to responses leaving the strategy engine.
const (
	SourceCache    = "cache"
	SourceNetwork  = "network"
	SourceFallback = "fallback"
)

// OK reports whether the status code is in the success range (200-299).
// Only OK responses are written to caches; redirects and errors would poison
// entries that outlive the condition that produced them.
func (r *Response) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Clone deep-copies the response. Stored entries and returned responses must
// never alias: the caller may consume or mutate one while the other persists.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	dup := &Response{
		StatusCode: r.StatusCode,
		URL:        r.URL,
		StoredAt:   r.StoredAt,
	}
	if r.Header != nil {
		dup.Header = r.Header.Clone()
	}
	if r.Body != nil {
		dup.Body = make([]byte, len(r.Body))
		copy(dup.Body, r.Body)
	}
	return dup
}

// Snapshot drains an *http.Response into a Response and closes the body.
func Snapshot(resp *http.Response) (*Response, error) {
	body, err := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}
	url := ""
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.String()
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		URL:        url,
	}, nil
}

// WriteHTTP replays the snapshot onto a ResponseWriter.
func (r *Response) WriteHTTP(w http.ResponseWriter) error {
	for key, values := range r.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(r.StatusCode)
	_, err := w.Write(r.Body)
	return err
}
