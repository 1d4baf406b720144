package strategy

import (
	"context"
	"net/http"

	"github.com/intakeworks/offlinekit/cachestore"
)

// Fetcher retrieves a response from the origin network. Implementations
// return an error when the origin could not be reached at all; an HTTP error
// status is a successful fetch.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*cachestore.Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req *http.Request) (*cachestore.Response, error)

// Fetch calls f(ctx, req).
func (f FetcherFunc) Fetch(ctx context.Context, req *http.Request) (*cachestore.Response, error) {
	return f(ctx, req)
}

// HTTPFetcher fetches over a standard *http.Client and snapshots the result
// so it can be cached and replayed.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher backed by client. A nil client uses
// http.DefaultClient.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

// Fetch performs the request and drains the body into a snapshot.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *http.Request) (*cachestore.Response, error) {
	resp, err := f.client.Do(req.Clone(ctx))
	if err != nil {
		return nil, err
	}
	return cachestore.Snapshot(resp)
}

var _ Fetcher = (*HTTPFetcher)(nil)
var _ Fetcher = FetcherFunc(nil)
