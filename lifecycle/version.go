package lifecycle

import (
	"github.com/intakeworks/offlinekit/classify"
)

// VersionSet names the caches owned by one build of the application. Cache
// names embed the build tag so two versions never share entries and old
// versions can be swept by name.
type VersionSet struct {
	// Tag is the build identifier the cache names are derived from.
	Tag string

	// Static holds precached shell assets, served cache-first.
	Static string

	// Dynamic holds pages and uncategorized responses.
	Dynamic string

	// API holds api-call responses used as a network-first fallback.
	API string
}

// NewVersionSet derives the cache names for a build tag.
func NewVersionSet(tag string) VersionSet {
	return VersionSet{
		Tag:     tag,
		Static:  "static-" + tag,
		Dynamic: "dynamic-" + tag,
		API:     "api-" + tag,
	}
}

// Names lists every cache name in the set.
func (v VersionSet) Names() []string {
	return []string{v.Static, v.Dynamic, v.API}
}

// Contains reports whether name belongs to this version.
func (v VersionSet) Contains(name string) bool {
	return name == v.Static || name == v.Dynamic || name == v.API
}

// For returns the cache name responsible for a request category. Static
// assets get the static cache, API calls the api cache, and everything else
// lands in the dynamic cache.
func (v VersionSet) For(cat classify.Category) string {
	switch cat {
	case classify.CategoryStatic:
		return v.Static
	case classify.CategoryAPI:
		return v.API
	default:
		return v.Dynamic
	}
}
