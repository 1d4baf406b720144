// Package worker assembles the offline layer into a single event-driven
// surface modeled on the service-worker lifecycle.
//
// A Worker owns one build's versioned caches and reacts to platform events:
// install precaches the asset manifest, activate evicts every cache that
// belongs to another build, fetch answers intercepted requests through the
// per-category strategy routes, push and interaction events go to the push
// handler, sync events to the replay registry, and message events carry
// commands from other processes (skip-waiting, clear-cache, cache-urls).
//
// Dispatch implements the extend-lifetime contract as a return-value
// contract: it comes back only when the handler and every background task
// it registered (WaitUntil) have settled. Tests and shutdown paths can also
// wait explicitly with Settle.
//
// Routing by category:
//
//   - static-asset   -> cache-first against the static cache
//   - api-call       -> network-first against the api cache
//   - navigable-page -> stale-while-revalidate against the dynamic cache
//   - other          -> network-first against the dynamic cache
//
// Requests the classifier does not intercept (non-GET, cross-origin) pass
// straight through the fetcher, untouched by any cache.
package worker
