package push

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ActionDismiss is the interaction action for an explicit dismissal. No
// page is focused or opened for it.
const ActionDismiss = "dismiss"

// ErrConfig indicates an invalid handler configuration.
var ErrConfig = errors.New("push: invalid config")

// Config configures a Handler.
type Config struct {
	// Notifier displays notifications. Required.
	Notifier Notifier

	// Clients is the open-page registry. Required.
	Clients Clients

	// Defaults fill gaps in payloads. Zero means StandardDefaults.
	Defaults Defaults

	// Origin is the application origin, e.g. "https://portal.example.com".
	// Deep links outside it are replaced with the default URL. Empty means
	// only relative deep links are accepted.
	Origin string
}

// Handler reacts to push messages and notification interactions.
type Handler struct {
	notifier Notifier
	clients  Clients
	defaults Defaults
	origin   *url.URL
}

// NewHandler validates cfg and returns a Handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("%w: notifier is required", ErrConfig)
	}
	if cfg.Clients == nil {
		return nil, fmt.Errorf("%w: clients is required", ErrConfig)
	}
	var origin *url.URL
	if cfg.Origin != "" {
		u, err := url.Parse(cfg.Origin)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: origin %q is not an absolute URL", ErrConfig, cfg.Origin)
		}
		origin = u
	}
	d := cfg.Defaults
	if d == (Defaults{}) {
		d = StandardDefaults()
	}
	if d.URL == "" {
		d.URL = "/"
	}
	return &Handler{
		notifier: cfg.Notifier,
		clients:  cfg.Clients,
		defaults: d,
		origin:   origin,
	}, nil
}

// Shown describes the notification displayed for a push message.
type Shown struct {
	ID           string
	Notification Notification
}

// HandlePush decodes raw and shows exactly one notification for it. The
// payload may be empty or malformed; the defaults then carry the
// notification. The deep-link target is origin validated before display.
func (h *Handler) HandlePush(ctx context.Context, raw []byte) (Shown, error) {
	p := DecodePayload(raw, h.defaults)
	n := Notification{
		Title:  p.Title,
		Body:   p.Body,
		Icon:   p.Icon,
		Badge:  p.Badge,
		Tag:    p.Tag,
		Target: h.resolveTarget(p.Data.URL),
	}
	id, err := h.notifier.Show(ctx, n)
	if err != nil {
		return Shown{}, fmt.Errorf("push: show notification: %w", err)
	}
	return Shown{ID: id, Notification: n}, nil
}

// Interaction is a user's response to a shown notification.
type Interaction struct {
	// ID identifies the notification interacted with.
	ID string

	// Notification is the notification as it was shown.
	Notification Notification

	// Action is the chosen action. Empty means the body was tapped;
	// ActionDismiss means it was dismissed.
	Action string
}

// HandleInteraction closes the notification and, unless it was dismissed,
// brings the target into view: an open page already at the target URL is
// focused, otherwise a new page is opened there. Exactly one of the two
// happens per interaction.
func (h *Handler) HandleInteraction(ctx context.Context, in Interaction) error {
	// The notification leaves the screen regardless of what follows.
	closeErr := h.notifier.Close(ctx, in.ID)
	if in.Action == ActionDismiss {
		return closeErr
	}

	target := h.resolveTarget(in.Notification.Target)
	pages, err := h.clients.List(ctx)
	if err != nil {
		return errors.Join(closeErr, fmt.Errorf("push: list pages: %w", err))
	}
	for _, page := range pages {
		if page.URL == target {
			return errors.Join(closeErr, h.clients.Focus(ctx, page.ID))
		}
	}
	if _, err := h.clients.OpenWindow(ctx, target); err != nil {
		return errors.Join(closeErr, fmt.Errorf("push: open window: %w", err))
	}
	return closeErr
}

// resolveTarget keeps relative and same-origin deep links and sends
// everything else to the default URL.
func (h *Handler) resolveTarget(raw string) string {
	if raw == "" {
		return h.defaults.URL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return h.defaults.URL
	}
	if u.Scheme == "" && u.Host == "" {
		return raw
	}
	if h.origin != nil && strings.EqualFold(u.Scheme, h.origin.Scheme) && strings.EqualFold(u.Host, h.origin.Host) {
		return raw
	}
	return h.defaults.URL
}
