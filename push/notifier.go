package push

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotifierClosed is returned by Show after the notifier shuts down.
var ErrNotifierClosed = errors.New("push: notifier is closed")

// Notification is what the user ends up seeing.
type Notification struct {
	Title string
	Body  string
	Icon  string
	Badge string

	// Tag groups notifications: showing a notification with a tag that is
	// already on screen replaces the older one instead of stacking.
	Tag string

	// Target is the validated deep link opened on tap.
	Target string
}

// Notifier displays notifications. Implementations bridge to whatever the
// host platform uses to reach the user.
type Notifier interface {
	// Show displays n and returns an identifier for closing it later.
	// Showing a tagged notification replaces any visible one with the
	// same tag.
	Show(ctx context.Context, n Notification) (string, error)

	// Close removes a previously shown notification. Closing an unknown
	// id is a no-op.
	Close(ctx context.Context, id string) error
}

// visible pairs a notification with its assigned id, ordered by arrival.
type visible struct {
	id string
	n  Notification
}

// MemoryNotifier keeps shown notifications in memory. It implements the tag
// replacement contract and is the stock Notifier for in-process hosts.
type MemoryNotifier struct {
	mu     sync.Mutex
	active []visible
	closed bool
}

// NewMemoryNotifier returns an empty in-memory notifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

// Show records n, replacing a visible notification that shares its tag.
func (m *MemoryNotifier) Show(ctx context.Context, n Notification) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrNotifierClosed
	}
	id := uuid.NewString()
	if n.Tag != "" {
		for i, s := range m.active {
			if s.n.Tag == n.Tag {
				m.active[i] = visible{id: id, n: n}
				return id, nil
			}
		}
	}
	m.active = append(m.active, visible{id: id, n: n})
	return id, nil
}

// Close removes the notification with the given id.
func (m *MemoryNotifier) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.active {
		if s.id == id {
			m.active = append(m.active[:i], m.active[i+1:]...)
			return nil
		}
	}
	return nil
}

// Active returns the currently visible notifications in display order.
func (m *MemoryNotifier) Active() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.active))
	for i, s := range m.active {
		out[i] = s.n
	}
	return out
}

// Shutdown makes further Show calls fail. Existing notifications stay
// listed so they can still be closed.
func (m *MemoryNotifier) Shutdown() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

var _ Notifier = (*MemoryNotifier)(nil)
