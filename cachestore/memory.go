package cachestore

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	caches map[string]*memoryCache
	limits Limits
}

// NewMemoryStore creates an in-memory store whose caches share the given
// per-cache limits.
func NewMemoryStore(limits Limits) *MemoryStore {
	return &MemoryStore{
		caches: make(map[string]*memoryCache),
		limits: limits,
	}
}

// Open returns the named cache, creating it on first use.
func (s *MemoryStore) Open(_ context.Context, name string) (Cache, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caches[name]
	if !ok {
		c = &memoryCache{
			entries: make(map[string]*Response),
			limits:  s.limits,
		}
		s.caches[name] = c
	}
	return c, nil
}

// Names lists every cache currently held, sorted for determinism.
func (s *MemoryStore) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Drop destroys the named cache. No error if the cache does not exist.
func (s *MemoryStore) Drop(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.caches, name)
	s.mu.Unlock()
	return nil
}

// memoryCache is one named mapping guarded by a mutex. Writes are
// last-writer-wins per identity; concurrent readers see either the previous
// or the new entry, never a partial one.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Response
	bytes   int64
	limits  Limits
}

// Match returns a clone of the stored response. (nil, false) on miss or for
// identities that are never cached.
func (c *memoryCache) Match(_ context.Context, req *http.Request) (*Response, bool) {
	if !Cacheable(req) {
		return nil, false
	}
	key := Key(req)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// Put stores a clone of the response, replacing any previous entry.
func (c *memoryCache) Put(_ context.Context, req *http.Request, resp *Response) error {
	if !Cacheable(req) {
		return ErrUncacheable
	}
	key := Key(req)

	stored := resp.Clone()
	stored.StoredAt = time.Now().UTC()
	if stored.URL == "" {
		stored.URL = req.URL.String()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	old, replacing := c.entries[key]
	delta := int64(len(stored.Body))
	if replacing {
		delta -= int64(len(old.Body))
	}
	if !c.limits.allows(len(c.entries), c.bytes, delta, replacing) {
		return ErrCacheFull
	}
	c.entries[key] = stored
	c.bytes += delta
	return nil
}

// Delete removes the entry for the request identity. No error on miss.
func (c *memoryCache) Delete(_ context.Context, req *http.Request) error {
	key := Key(req)

	c.mu.Lock()
	if old, ok := c.entries[key]; ok {
		c.bytes -= int64(len(old.Body))
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return nil
}

// Keys lists stored identities, sorted for determinism.
func (c *memoryCache) Keys(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Ensure implementations satisfy the interfaces.
var (
	_ Store = (*MemoryStore)(nil)
	_ Cache = (*memoryCache)(nil)
)
