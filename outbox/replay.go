package outbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/intakeworks/offlinekit/observe"
	"github.com/intakeworks/offlinekit/strategy"
	"github.com/intakeworks/offlinekit/syncqueue"
)

// Replayer drains one sync tag's backlog through the network. Delivered
// items are acknowledged; failed ones stay queued with their attempt count
// bumped so a later replay picks them up again.
type Replayer struct {
	store   Store
	fetcher strategy.Fetcher
	tag     string
	logger  observe.Logger
}

// NewReplayer wires a store and fetcher into a replayer for tag. A nil
// logger discards logs.
func NewReplayer(store Store, fetcher strategy.Fetcher, tag string, logger observe.Logger) (*Replayer, error) {
	if store == nil {
		return nil, fmt.Errorf("outbox: replayer requires a store")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("outbox: replayer requires a fetcher")
	}
	if tag == "" {
		return nil, fmt.Errorf("outbox: replayer requires a tag")
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Replayer{
		store:   store,
		fetcher: fetcher,
		tag:     tag,
		logger:  logger.WithComponent("outbox"),
	}, nil
}

// Handler returns the replay handler to register under this replayer's tag.
func (r *Replayer) Handler() syncqueue.ReplayHandler {
	return r.Replay
}

// Replay sends every pending item for the tag in enqueue order. Each item
// either delivers (2xx, acknowledged and removed) or fails (kept queued
// with the cause recorded). Any failure makes Replay return an aggregate
// error so the dispatch is rescheduled; items after a failed one are still
// attempted, since queue entries are independent requests.
func (r *Replayer) Replay(ctx context.Context) error {
	items, err := r.store.Pending(ctx, r.tag)
	if err != nil {
		return fmt.Errorf("outbox: pending %s: %w", r.tag, err)
	}

	var errs []error
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := r.replayOne(ctx, item); err != nil {
			errs = append(errs, fmt.Errorf("item %s: %w", item.ID, err))
			if failErr := r.store.Fail(ctx, item.ID, err); failErr != nil {
				errs = append(errs, fmt.Errorf("record failure for %s: %w", item.ID, failErr))
			}
			r.logger.Warn(ctx, "outbox item failed",
				observe.Field{Key: "tag", Value: r.tag},
				observe.Field{Key: "item", Value: item.ID.String()},
				observe.Field{Key: "error", Value: err.Error()},
			)
			continue
		}
		if err := r.store.Ack(ctx, item.ID); err != nil {
			errs = append(errs, fmt.Errorf("ack %s: %w", item.ID, err))
			continue
		}
		r.logger.Debug(ctx, "outbox item delivered",
			observe.Field{Key: "tag", Value: r.tag},
			observe.Field{Key: "item", Value: item.ID.String()},
		)
	}
	return errors.Join(errs...)
}

// replayOne sends one item. The bearer check runs first so an expired
// credential never reaches the network.
func (r *Replayer) replayOne(ctx context.Context, item Item) error {
	if err := CheckBearer(item.Header); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, item.Method, item.URL, bytes.NewReader(item.Body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if item.Header != nil {
		req.Header = item.Header.Clone()
	}

	resp, err := r.fetcher.Fetch(ctx, req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// CheckBearer inspects an Authorization bearer token and returns
// ErrCredentialExpired when its exp claim has passed. The token signature
// is not verified; the client holds no keys, and the only question here is
// whether sending it could possibly succeed. Opaque (non-JWT) tokens and
// tokens without exp pass: the server is the judge of those.
func CheckBearer(header http.Header) error {
	const prefix = "Bearer "
	auth := header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) {
		return nil
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	if raw == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if time.Now().After(exp.Time) {
		return fmt.Errorf("%w: token expired at %s", ErrCredentialExpired, exp.Time.UTC().Format(time.RFC3339))
	}
	return nil
}
