package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/intakeworks/offlinekit/observe"
)

// Sync tags shared with the host application's offline queue.
const (
	// TagMessages replays outbound messages composed while offline.
	TagMessages = "sync-messages"

	// TagDocuments replays document uploads deferred while offline.
	TagDocuments = "sync-documents"
)

// ErrReplayFailed wraps a handler failure so callers can tell a replay
// error from a dispatch misuse. The handler's own error stays matchable
// through errors.Is/As.
var ErrReplayFailed = errors.New("syncqueue: replay failed")

// ReplayHandler replays every pending item for one tag. It returns nil only
// when the tag's backlog is fully drained; any failure must surface so the
// dispatch can be rescheduled. Handlers are responsible for making replay
// idempotent, since a tag is retried at-least-once.
type ReplayHandler func(ctx context.Context) error

// Registry maps sync tags to their replay handlers.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Context: Dispatch passes ctx through to the handler unchanged.
//   - Errors: handler failures wrap ErrReplayFailed; unknown tags are not
//     an error.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]ReplayHandler
	logger   observe.Logger
}

// NewRegistry returns an empty registry. A nil logger discards logs.
func NewRegistry(logger observe.Logger) *Registry {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Registry{
		handlers: make(map[string]ReplayHandler),
		logger:   logger.WithComponent("syncqueue"),
	}
}

// Register binds tag to handler. Registering a tag twice replaces the
// earlier handler.
func (r *Registry) Register(tag string, handler ReplayHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[tag] = handler
}

// Tags returns the registered tags, sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.handlers))
	for tag := range r.handlers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Dispatch replays the given tag. A known tag runs its handler and
// propagates the handler's failure wrapped in ErrReplayFailed. An unknown
// tag is logged and ignored: hosts may fire tags this build does not
// handle, and that must not look like a replay failure.
func (r *Registry) Dispatch(ctx context.Context, tag string) error {
	r.mu.RLock()
	handler, ok := r.handlers[tag]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn(ctx, "ignoring unknown sync tag", observe.Field{Key: "tag", Value: tag})
		return nil
	}

	if err := handler(ctx); err != nil {
		return fmt.Errorf("%w: tag %q: %w", ErrReplayFailed, tag, err)
	}
	r.logger.Debug(ctx, "sync tag replayed", observe.Field{Key: "tag", Value: tag})
	return nil
}
