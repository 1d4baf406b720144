package push

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNoPage is returned when a page id is not in the registry.
var ErrNoPage = errors.New("push: no such page")

// Page is an open application page known to the worker.
type Page struct {
	ID  string
	URL string

	// Focused marks the page the user is currently looking at.
	Focused bool

	// Controlled marks pages taken over by the active worker version.
	Controlled bool
}

// Clients tracks open pages and can bring one to the foreground or open a
// new one.
type Clients interface {
	List(ctx context.Context) ([]Page, error)
	Focus(ctx context.Context, id string) error
	OpenWindow(ctx context.Context, url string) (Page, error)
}

// MemoryClients is an in-memory page registry. Besides Clients it
// implements the lifecycle page-claim hook: Claim marks every registered
// page as controlled by the worker.
type MemoryClients struct {
	mu    sync.Mutex
	pages []Page
}

// NewMemoryClients returns an empty registry.
func NewMemoryClients() *MemoryClients {
	return &MemoryClients{}
}

// Register adds an open page and returns it with an assigned id.
func (m *MemoryClients) Register(url string) Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := Page{ID: uuid.NewString(), URL: url}
	m.pages = append(m.pages, page)
	return page
}

// Unregister drops a page, e.g. when it is closed.
func (m *MemoryClients) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.pages {
		if p.ID == id {
			m.pages = append(m.pages[:i], m.pages[i+1:]...)
			return
		}
	}
}

// List returns a copy of the registered pages in registration order.
func (m *MemoryClients) List(ctx context.Context) ([]Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Page, len(m.pages))
	copy(out, m.pages)
	return out, nil
}

// Focus marks the page with the given id focused and unfocuses the rest.
func (m *MemoryClients) Focus(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for i := range m.pages {
		if m.pages[i].ID == id {
			m.pages[i].Focused = true
			found = true
		} else {
			m.pages[i].Focused = false
		}
	}
	if !found {
		return ErrNoPage
	}
	return nil
}

// OpenWindow registers a new focused page at url.
func (m *MemoryClients) OpenWindow(ctx context.Context, url string) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.pages {
		m.pages[i].Focused = false
	}
	page := Page{ID: uuid.NewString(), URL: url, Focused: true}
	m.pages = append(m.pages, page)
	return page, nil
}

// Claim marks every registered page as controlled by the active worker.
func (m *MemoryClients) Claim(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.pages {
		m.pages[i].Controlled = true
	}
	return nil
}

var _ Clients = (*MemoryClients)(nil)
