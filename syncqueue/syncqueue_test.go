package syncqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// countingHandler is a ReplayHandler fake that counts calls and fails a
// scripted number of times before succeeding.
type countingHandler struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
}

func (h *countingHandler) handle(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.failures > 0 {
		h.failures--
		if h.err != nil {
			return h.err
		}
		return errors.New("network still down")
	}
	return nil
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func TestRegistry_DispatchKnownTag(t *testing.T) {
	r := NewRegistry(nil)
	h := &countingHandler{}
	r.Register(TagMessages, h.handle)

	if err := r.Dispatch(context.Background(), TagMessages); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if h.count() != 1 {
		t.Errorf("handler calls = %d, want 1", h.count())
	}
}

// TestRegistry_DispatchPropagatesFailure verifies a handler failure reaches
// the caller so the tag can be rescheduled, with both the sentinel and the
// cause matchable.
func TestRegistry_DispatchPropagatesFailure(t *testing.T) {
	r := NewRegistry(nil)
	cause := errors.New("server rejected batch")
	r.Register(TagDocuments, func(ctx context.Context) error { return cause })

	err := r.Dispatch(context.Background(), TagDocuments)
	if err == nil {
		t.Fatal("expected handler failure to propagate")
	}
	if !errors.Is(err, ErrReplayFailed) {
		t.Errorf("error should wrap ErrReplayFailed, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error should keep the cause matchable, got %v", err)
	}
}

// TestRegistry_UnknownTagIgnored verifies an unrecognized tag is not an
// error: newer hosts may fire tags this build does not handle.
func TestRegistry_UnknownTagIgnored(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(TagMessages, func(ctx context.Context) error {
		t.Fatal("handler must not run for a different tag")
		return nil
	})

	if err := r.Dispatch(context.Background(), "sync-unknown"); err != nil {
		t.Fatalf("unknown tag should be ignored, got %v", err)
	}
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry(nil)
	first := &countingHandler{}
	second := &countingHandler{}
	r.Register(TagMessages, first.handle)
	r.Register(TagMessages, second.handle)

	if err := r.Dispatch(context.Background(), TagMessages); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if first.count() != 0 {
		t.Errorf("replaced handler ran %d times", first.count())
	}
	if second.count() != 1 {
		t.Errorf("current handler calls = %d, want 1", second.count())
	}
}

func TestRegistry_Tags(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(TagDocuments, func(ctx context.Context) error { return nil })
	r.Register(TagMessages, func(ctx context.Context) error { return nil })

	tags := r.Tags()
	if len(tags) != 2 || tags[0] != TagDocuments || tags[1] != TagMessages {
		t.Errorf("Tags() = %v, want sorted [%s %s]", tags, TagDocuments, TagMessages)
	}
}

// TestRegistry_ConcurrentDispatch exercises the registry under concurrent
// registration and dispatch.
func TestRegistry_ConcurrentDispatch(t *testing.T) {
	r := NewRegistry(nil)
	h := &countingHandler{}
	r.Register(TagMessages, h.handle)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Dispatch(context.Background(), TagMessages)
		}()
	}
	wg.Wait()

	if h.count() != 50 {
		t.Errorf("handler calls = %d, want 50", h.count())
	}
}
