package cachestore

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// MaxNameLength is the maximum allowed length for a cache name.
const MaxNameLength = 128

// Sentinel errors for cache store operations.
var (
	ErrInvalidName = errors.New("cachestore: cache name is invalid")
	ErrUncacheable = errors.New("cachestore: request identity is not cacheable")
	ErrCacheFull   = errors.New("cachestore: cache limit exceeded")
)

// Store is a set of independently versioned, named caches.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Lifecycle: a cache exists from its first Open until Drop; Drop is idempotent.
type Store interface {
	// Open returns the named cache, creating it on first use.
	Open(ctx context.Context, name string) (Cache, error)

	// Names lists every cache currently held by the store.
	Names(ctx context.Context) ([]string, error)

	// Drop destroys the named cache and all of its entries. No error if absent.
	Drop(ctx context.Context, name string) error
}

// Cache is one named mapping from request identity to stored response.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Match never errors; it returns (nil, false) on miss.
// - Identity: one entry per request identity; Put overwrites (last writer wins).
// - Ownership: Match and Put operate on clones; callers may mutate what they
//   hold without affecting stored entries.
type Cache interface {
	// Match returns the stored response for the request identity.
	Match(ctx context.Context, req *http.Request) (*Response, bool)

	// Put stores a response under the request identity, replacing any
	// previous entry. Only GET identities are cacheable.
	Put(ctx context.Context, req *http.Request, resp *Response) error

	// Delete removes the entry for the request identity. No error on miss.
	Delete(ctx context.Context, req *http.Request) error

	// Keys lists the stored request identities.
	Keys(ctx context.Context) ([]string, error)
}

// ValidateName checks if a name is valid for a cache.
func ValidateName(name string) error {
	if name == "" || strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if len(name) > MaxNameLength {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, "/\\\n\r\t ") {
		return ErrInvalidName
	}
	return nil
}
