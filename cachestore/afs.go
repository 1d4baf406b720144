package cachestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/viant/afs"
)

// AFSStore is a Store persisted through the viant/afs storage abstraction.
// Each cache is a directory under the base URL and each entry a JSON-encoded
// response snapshot whose file name encodes the request identity. Any afs
// scheme works; file:// keeps offline caches across process restarts and
// mem:// backs tests.
type AFSStore struct {
	fs      afs.Service
	baseURL string
	limits  Limits
}

// NewAFSStore creates a file-backed store rooted at baseURL, e.g.
// "file:///var/lib/offlinekit/caches" or "mem://offlinekit/caches".
func NewAFSStore(baseURL string, limits Limits) *AFSStore {
	return &AFSStore{
		fs:      afs.New(),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		limits:  limits,
	}
}

// Open returns the named cache. The backing directory appears on first write.
func (s *AFSStore) Open(_ context.Context, name string) (Cache, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &afsCache{
		fs:     s.fs,
		url:    s.baseURL + "/" + name,
		limits: s.limits,
	}, nil
}

// Names lists caches that hold at least one entry.
func (s *AFSStore) Names(ctx context.Context) ([]string, error) {
	objects, err := s.fs.List(ctx, s.baseURL)
	if err != nil {
		// Nothing written yet.
		return nil, nil
	}
	var names []string
	for _, obj := range objects {
		if !obj.IsDir() {
			continue
		}
		name := strings.Trim(obj.Name(), "/")
		if name == "" || strings.TrimSuffix(obj.URL(), "/") == s.baseURL {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Drop destroys the named cache directory. No error if absent.
func (s *AFSStore) Drop(ctx context.Context, name string) error {
	target := s.baseURL + "/" + name
	ok, err := s.fs.Exists(ctx, target)
	if err != nil || !ok {
		return nil
	}
	return s.fs.Delete(ctx, target)
}

// afsCache stores one entry per object. Uploads replace whole objects, so a
// concurrent reader sees either the previous snapshot or the new one.
type afsCache struct {
	fs     afs.Service
	url    string
	limits Limits
}

func (c *afsCache) entryURL(key string) string {
	return c.url + "/" + base64.RawURLEncoding.EncodeToString([]byte(key)) + ".json"
}

// Match returns the stored response for the request identity. IO failures
// read as misses: the caller falls back to the network and the next
// successful fetch rewrites the entry.
func (c *afsCache) Match(ctx context.Context, req *http.Request) (*Response, bool) {
	if !Cacheable(req) {
		return nil, false
	}
	target := c.entryURL(Key(req))
	ok, err := c.fs.Exists(ctx, target)
	if err != nil || !ok {
		return nil, false
	}
	data, err := c.fs.DownloadWithURL(ctx, target)
	if err != nil {
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// Put stores a snapshot of the response, replacing any previous entry.
func (c *afsCache) Put(ctx context.Context, req *http.Request, resp *Response) error {
	if !Cacheable(req) {
		return ErrUncacheable
	}
	stored := resp.Clone()
	stored.StoredAt = time.Now().UTC()
	if stored.URL == "" {
		stored.URL = req.URL.String()
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	target := c.entryURL(Key(req))
	if c.limits.Capped() {
		entries, size := c.usage(ctx)
		replacing, _ := c.fs.Exists(ctx, target)
		// Size accounting is by encoded object, a close upper bound on
		// body bytes.
		if !c.limits.allows(entries, size, int64(len(data)), replacing) {
			return ErrCacheFull
		}
	}
	return c.fs.Upload(ctx, target, 0o644, bytes.NewReader(data))
}

// Delete removes the entry for the request identity. No error on miss.
func (c *afsCache) Delete(ctx context.Context, req *http.Request) error {
	target := c.entryURL(Key(req))
	ok, err := c.fs.Exists(ctx, target)
	if err != nil || !ok {
		return nil
	}
	return c.fs.Delete(ctx, target)
}

// Keys lists stored identities decoded from entry file names.
func (c *afsCache) Keys(ctx context.Context) ([]string, error) {
	objects, err := c.fs.List(ctx, c.url)
	if err != nil {
		return nil, nil
	}
	var keys []string
	for _, obj := range objects {
		if obj.IsDir() {
			continue
		}
		name := strings.TrimSuffix(obj.Name(), ".json")
		raw, err := base64.RawURLEncoding.DecodeString(name)
		if err != nil {
			continue
		}
		keys = append(keys, string(raw))
	}
	sort.Strings(keys)
	return keys, nil
}

// usage counts current entries and their encoded bytes.
func (c *afsCache) usage(ctx context.Context) (int, int64) {
	objects, err := c.fs.List(ctx, c.url)
	if err != nil {
		return 0, 0
	}
	entries := 0
	var size int64
	for _, obj := range objects {
		if obj.IsDir() {
			continue
		}
		entries++
		size += obj.Size()
	}
	return entries, size
}

var (
	_ Store = (*AFSStore)(nil)
	_ Cache = (*afsCache)(nil)
)
