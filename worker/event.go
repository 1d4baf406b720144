package worker

import (
	"net/http"

	"github.com/intakeworks/offlinekit/cachestore"
	"github.com/intakeworks/offlinekit/push"
)

// Event is one platform event delivered to the worker. The concrete types
// below are the complete set; Dispatch rejects anything else.
type Event interface {
	// Kind names the event for spans, metrics, and logs.
	Kind() string
}

// InstallEvent asks the worker to precache its manifest and become installed.
type InstallEvent struct{}

// Kind reports "install".
func (InstallEvent) Kind() string { return "install" }

// ActivateEvent asks the worker to evict other builds' caches and take over.
type ActivateEvent struct{}

// Kind reports "activate".
func (ActivateEvent) Kind() string { return "activate" }

// FetchEvent carries one intercepted request through a dispatch. After a
// successful dispatch the produced response is available from Response.
type FetchEvent struct {
	// Request is the request to answer.
	Request *http.Request

	resp *cachestore.Response
}

// NewFetchEvent wraps req in a dispatchable fetch event.
func NewFetchEvent(req *http.Request) *FetchEvent {
	return &FetchEvent{Request: req}
}

// Kind reports "fetch".
func (*FetchEvent) Kind() string { return "fetch" }

// Response returns the response produced for the request: nil before
// dispatch and after a failed one.
func (e *FetchEvent) Response() *cachestore.Response { return e.resp }

// PushEvent carries the raw payload of one push message.
type PushEvent struct {
	Payload []byte
}

// Kind reports "push".
func (PushEvent) Kind() string { return "push" }

// InteractionEvent carries a user's response to a shown notification.
type InteractionEvent struct {
	Interaction push.Interaction
}

// Kind reports "interaction".
func (InteractionEvent) Kind() string { return "interaction" }

// SyncEvent asks the worker to replay the deferred work queued under Tag.
type SyncEvent struct {
	Tag string
}

// Kind reports "sync".
func (SyncEvent) Kind() string { return "sync" }

// MessageEvent carries one raw command message from another process.
type MessageEvent struct {
	Data []byte
}

// Kind reports "message".
func (MessageEvent) Kind() string { return "message" }
