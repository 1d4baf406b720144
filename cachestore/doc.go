// Package cachestore provides the named response caches behind the offline
// layer.
//
// It provides Store and Cache interfaces with memory and file-backed
// implementations, canonical request-identity keys, and per-cache size limits.
package cachestore
