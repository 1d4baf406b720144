// Package syncqueue replays work that was deferred while the client was
// offline.
//
// The queue itself is durable storage owned by the host (see the outbox
// package for a ready implementation); syncqueue owns only the dispatch
// contract. A Registry maps sync tags to replay handlers: dispatching a
// known tag runs its handler and propagates the handler's failure so the
// caller can reschedule, while unknown tags are logged and ignored.
//
// The Scheduler is that rescheduling made concrete. It tracks tags whose
// replay failed, retries them with exponential backoff, retries immediately
// when Kick signals connectivity came back, and gives up after a bounded
// number of attempts.
package syncqueue
