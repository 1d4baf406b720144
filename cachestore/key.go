package cachestore

import (
	"net/http"
	"strings"
)

// Key derives the canonical request identity: method plus normalized URL.
//
// Normalization keeps two spellings of the same resource from producing two
// entries: scheme and host are lowercased, default ports elided, the fragment
// dropped (never sent on the wire), and an empty path becomes "/". The query
// string is preserved as sent; reordering parameters changes the identity.
func Key(req *http.Request) string {
	u := *req.URL
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host
	if u.Path == "" {
		u.Path = "/"
	}
	return req.Method + " " + u.String()
}

// Cacheable reports whether the request has a storable identity (GET only).
func Cacheable(req *http.Request) bool {
	return req.Method == http.MethodGet
}
