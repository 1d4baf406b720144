package outbox

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps items in process memory, in enqueue order. Suitable for
// tests and hosts whose queue does not need to survive a restart.
type MemoryStore struct {
	mu    sync.Mutex
	items []Item
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Enqueue appends the item.
func (s *MemoryStore) Enqueue(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := item.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item.clone())
	return nil
}

// Pending returns copies of the queued items for tag in enqueue order.
func (s *MemoryStore) Pending(ctx context.Context, tag string) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		if tag != "" && item.Tag != tag {
			continue
		}
		out = append(out, item.clone())
	}
	return out, nil
}

// Ack removes the item with the given ID.
func (s *MemoryStore) Ack(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Fail bumps the item's attempt count and records the cause.
func (s *MemoryStore) Fail(ctx context.Context, id uuid.UUID, cause error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Attempts++
			s.items[i].LastError = lastError
			return nil
		}
	}
	return ErrNotFound
}

// Depth counts queued items for tag.
func (s *MemoryStore) Depth(ctx context.Context, tag string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tag == "" {
		return len(s.items), nil
	}
	n := 0
	for _, item := range s.items {
		if item.Tag == tag {
			n++
		}
	}
	return n, nil
}

var _ Store = (*MemoryStore)(nil)
