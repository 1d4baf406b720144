// Package strategy decides how a single request is answered from the
// combination of a named cache and the network.
//
// A Strategy consumes a request and produces a response snapshot. The three
// implementations cover the classic offline patterns:
//
//   - CacheFirst: serve from cache, fall back to the network, cache the result.
//   - NetworkFirst: try the network, fall back to cache when it is unreachable.
//   - StaleWhileRevalidate: serve from cache immediately and refresh the
//     cached copy in the background.
//
// Strategies never surface network unreachability as an error. When both the
// network and the cache come up empty they synthesize an offline response:
// an offline page for navigations, a JSON error body for everything else.
// Only successful (2xx) network responses are written back to a cache, and a
// failed cache write never blocks the response from reaching the caller.
//
// Contract:
//
//   - Concurrency: strategies are safe for concurrent use when their cache,
//     fetcher, and spawner are.
//   - Context: Respond honors ctx for the foreground fetch and cache access.
//     Background revalidation runs on the spawner's context, not the caller's.
//   - Errors: Respond returns an error only for malformed input or a
//     cancelled context, never for an unreachable network.
package strategy
