// Package outbox stores actions attempted while offline until they can be
// replayed against the origin.
//
// An Item captures one deferred HTTP request: messages composed offline,
// document uploads, anything the host queues under a sync tag. Store
// implementations persist items in enqueue order; MemoryStore suits tests
// and single-session hosts, SQLiteStore survives restarts.
//
// Replayer turns a Store plus a Fetcher into a syncqueue.ReplayHandler for
// one tag: it sends each pending item, acknowledges delivered ones, records
// failures, and reports the aggregate outcome so the scheduler can retry.
// Items carrying an expired bearer token fail locally without touching the
// network; replaying a stale credential would only produce a 401 for every
// item behind it.
//
// Delivery is at-least-once. A crash between delivery and acknowledgment
// replays the item, so the receiving endpoints own idempotency.
package outbox
