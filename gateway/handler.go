package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/intakeworks/offlinekit/health"
	"github.com/intakeworks/offlinekit/lifecycle"
	"github.com/intakeworks/offlinekit/message"
	"github.com/intakeworks/offlinekit/observe"
	"github.com/intakeworks/offlinekit/outbox"
	"github.com/intakeworks/offlinekit/push"
	"github.com/intakeworks/offlinekit/strategy"
	"github.com/intakeworks/offlinekit/syncqueue"
	"github.com/intakeworks/offlinekit/worker"
)

// SyncTagHeader names the outbox tag a mutation defers under when the
// origin is unreachable. Requests without it fail like any other proxy
// error.
const SyncTagHeader = "X-Sync-Tag"

// SourceHeader reports where a response came from: cache, network, or
// fallback.
const SourceHeader = "X-Offline-Source"

// Request size limits.
const (
	maxCommandBytes  = 64 << 10
	maxDeferredBytes = 1 << 20
)

var errBodyTooLarge = errors.New("gateway: request body exceeds defer limit")

// handler is the gateway's HTTP surface. Everything not claimed by the
// control endpoints is answered through the worker.
type handler struct {
	worker    *worker.Worker
	queue     outbox.Store
	scheduler *syncqueue.Scheduler
	tags      map[string]bool
	origin    *url.URL
	notifier  *push.MemoryNotifier
	logger    observe.Logger
}

func (h *handler) routes(agg *health.Aggregator, build string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /offline/command", h.serveCommand)
	mux.HandleFunc("POST /offline/push", h.servePush)
	mux.HandleFunc("POST /offline/kick", h.serveKick)
	mux.HandleFunc("GET /offline/notifications", h.serveNotifications)
	health.RegisterHandlers(mux, agg, build)
	mux.HandleFunc("/", h.serveFetch)
	return mux
}

// serveFetch reshapes the inbound server request into a client request and
// answers it through the worker. Mutations that opted in with a sync tag
// are buffered first so they can land in the outbox when the origin is
// down.
func (h *handler) serveFetch(w http.ResponseWriter, r *http.Request) {
	out := r.Clone(r.Context())
	out.RequestURI = ""
	out.Host = ""

	tag := h.deferTag(r)
	var body []byte
	if tag != "" {
		buffered, err := bufferBody(out)
		if err != nil {
			if errors.Is(err, errBodyTooLarge) {
				http.Error(w, "request body too large to defer", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "read request body", http.StatusBadRequest)
			return
		}
		body = buffered
	}

	resp, err := h.worker.HandleFetch(r.Context(), out)
	if err != nil {
		if r.Context().Err() != nil {
			// The client went away; there is nobody to answer.
			return
		}
		if tag != "" {
			h.deferMutation(w, out, tag, body)
			return
		}
		h.logger.Warn(r.Context(), "fetch failed",
			observe.Field{Key: "method", Value: r.Method},
			observe.Field{Key: "url", Value: r.URL.String()},
			observe.Field{Key: "error", Value: err.Error()},
		)
		http.Error(w, "origin unreachable", http.StatusBadGateway)
		return
	}

	w.Header().Set(SourceHeader, resp.Source)
	if err := resp.WriteHTTP(w); err != nil {
		h.logger.Warn(r.Context(), "write response",
			observe.Field{Key: "url", Value: r.URL.String()},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}

// deferTag returns the outbox tag r defers under, or "" when the request
// must fail normally. Only mutations under a replayed tag qualify.
func (h *handler) deferTag(r *http.Request) string {
	tag := r.Header.Get(SyncTagHeader)
	if tag == "" || !mutation(r.Method) {
		return ""
	}
	if !h.tags[tag] {
		h.logger.Warn(r.Context(), "sync tag has no replayer",
			observe.Field{Key: "tag", Value: tag},
			observe.Field{Key: "url", Value: r.URL.String()},
		)
		return ""
	}
	return tag
}

func mutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// bufferBody drains r's body into memory and reinstalls it as a replayable
// reader, so the same bytes can go to the origin now and to the outbox if
// that fails.
func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDeferredBytes+1))
	r.Body.Close()
	if err != nil {
		return nil, err
	}
	if len(body) > maxDeferredBytes {
		return nil, errBodyTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return body, nil
}

// queuedReply is the body of a 202 for a deferred mutation.
type queuedReply struct {
	Queued bool   `json:"queued"`
	Tag    string `json:"tag"`
	ID     string `json:"id"`
}

// deferMutation parks the failed request in the outbox and schedules its
// tag for replay.
func (h *handler) deferMutation(w http.ResponseWriter, r *http.Request, tag string, body []byte) {
	item := outbox.NewItem(tag, r.Method, h.absoluteURL(r.URL), r.Header, body)
	if err := h.queue.Enqueue(r.Context(), item); err != nil {
		h.logger.Error(r.Context(), "enqueue deferred request",
			observe.Field{Key: "tag", Value: tag},
			observe.Field{Key: "url", Value: r.URL.String()},
			observe.Field{Key: "error", Value: err.Error()},
		)
		http.Error(w, "origin unreachable", http.StatusBadGateway)
		return
	}
	h.scheduler.Schedule(tag)
	h.logger.Info(r.Context(), "mutation deferred",
		observe.Field{Key: "tag", Value: tag},
		observe.Field{Key: "method", Value: r.Method},
		observe.Field{Key: "url", Value: r.URL.String()},
	)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set(strategy.OfflineHeader, "1")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(queuedReply{Queued: true, Tag: tag, ID: item.ID.String()}); err != nil {
		h.logger.Warn(r.Context(), "write deferred reply",
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}

// absoluteURL resolves u against the configured origin so outbox items
// replay against a reachable target.
func (h *handler) absoluteURL(u *url.URL) string {
	if u.Host == "" && h.origin != nil {
		return h.origin.ResolveReference(u).String()
	}
	return u.String()
}

// serveCommand relays one page command to the worker. The command has fully
// run when the dispatch returns; 202 also covers skip-waiting recorded for a
// later install.
func (h *handler) serveCommand(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, "read command", http.StatusBadRequest)
		return
	}
	if err := h.worker.Dispatch(r.Context(), worker.MessageEvent{Data: raw}); err != nil {
		switch {
		case errors.Is(err, message.ErrBadCommand):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, lifecycle.ErrPhase):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error(r.Context(), "command failed",
				observe.Field{Key: "error", Value: err.Error()},
			)
			http.Error(w, "command failed", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// servePush delivers one push payload, the raw bytes a push transport
// handed the host.
func (h *handler) servePush(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, "read payload", http.StatusBadRequest)
		return
	}
	if err := h.worker.Dispatch(r.Context(), worker.PushEvent{Payload: raw}); err != nil {
		h.logger.Error(r.Context(), "push failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
		http.Error(w, "push failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// serveKick makes every pending sync tag due immediately. Hosts call it
// when they detect connectivity is back.
func (h *handler) serveKick(w http.ResponseWriter, _ *http.Request) {
	h.scheduler.Kick()
	w.WriteHeader(http.StatusNoContent)
}

// serveNotifications lists the notifications currently on display, in
// display order.
func (h *handler) serveNotifications(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(h.notifier.Active()); err != nil {
		h.logger.Warn(r.Context(), "write notifications",
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}
