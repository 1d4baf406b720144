// Package observe provides observability primitives for the offline layer.
//
// It is a pure instrumentation library: no caching, no transport, no I/O
// beyond exporter setup. Consumers wire the observer into the worker's event
// dispatch or the gateway's request handling.
package observe
