package outbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the item ID is not in the store.
	ErrNotFound = errors.New("outbox: item not found")

	// ErrInvalidItem indicates an item that cannot be enqueued.
	ErrInvalidItem = errors.New("outbox: invalid item")

	// ErrCredentialExpired indicates an item whose bearer token expired while
	// it sat in the queue. The item is not sent.
	ErrCredentialExpired = errors.New("outbox: credential expired")
)

// Item is one deferred HTTP request.
type Item struct {
	ID        uuid.UUID
	Tag       string
	Method    string
	URL       string
	Header    http.Header
	Body      []byte
	CreatedAt time.Time

	// Attempts counts failed replays; LastError describes the most recent.
	Attempts  int
	LastError string
}

// NewItem builds an enqueueable item with a fresh ID. Header and body are
// copied so the caller can keep mutating its own.
func NewItem(tag, method, url string, header http.Header, body []byte) Item {
	item := Item{
		ID:        uuid.New(),
		Tag:       tag,
		Method:    method,
		URL:       url,
		CreatedAt: time.Now().UTC(),
	}
	if header != nil {
		item.Header = header.Clone()
	}
	if body != nil {
		item.Body = append([]byte(nil), body...)
	}
	return item
}

// validate reports whether the item can be enqueued.
func (i Item) validate() error {
	if i.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if i.Tag == "" {
		return fmt.Errorf("%w: missing tag", ErrInvalidItem)
	}
	if i.Method == "" {
		return fmt.Errorf("%w: missing method", ErrInvalidItem)
	}
	if i.URL == "" {
		return fmt.Errorf("%w: missing url", ErrInvalidItem)
	}
	return nil
}

// clone deep-copies the item so stored state and returned items never alias.
func (i Item) clone() Item {
	c := i
	if i.Header != nil {
		c.Header = i.Header.Clone()
	}
	if i.Body != nil {
		c.Body = append([]byte(nil), i.Body...)
	}
	return c
}

// Store persists deferred items until they are acknowledged.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: every method honors cancellation/deadlines.
//   - Errors: Ack and Fail return ErrNotFound for unknown IDs; Enqueue
//     wraps ErrInvalidItem for items missing required fields.
type Store interface {
	// Enqueue persists an item built by NewItem.
	Enqueue(ctx context.Context, item Item) error

	// Pending returns undelivered items for tag in enqueue order.
	// An empty tag selects every tag.
	Pending(ctx context.Context, tag string) ([]Item, error)

	// Ack removes a delivered item.
	Ack(ctx context.Context, id uuid.UUID) error

	// Fail records a failed replay attempt, keeping the item queued.
	Fail(ctx context.Context, id uuid.UUID, cause error) error

	// Depth counts undelivered items for tag. An empty tag counts all.
	Depth(ctx context.Context, tag string) (int, error)
}
