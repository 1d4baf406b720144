package classify

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Category is the caching category assigned to an intercepted request.
type Category int

const (
	// CategoryOther is everything no higher-priority rule claimed.
	CategoryOther Category = iota
	// CategoryStatic is a build asset: script, stylesheet, image, font, icon.
	CategoryStatic
	// CategoryAPI is a call against the application's API routes.
	CategoryAPI
	// CategoryPage is a top-level navigation or an app-shell route.
	CategoryPage
)

// String returns the category name used in logs and metric labels.
func (c Category) String() string {
	switch c {
	case CategoryStatic:
		return "static-asset"
	case CategoryAPI:
		return "api-call"
	case CategoryPage:
		return "navigable-page"
	default:
		return "other"
	}
}

// DefaultStaticExtensions is the extension allow-list for static assets.
var DefaultStaticExtensions = []string{
	".css", ".js", ".mjs",
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico",
	".woff", ".woff2", ".ttf",
}

// Rules configures the classifier. Zero-value fields fall back to the
// defaults below.
type Rules struct {
	// Origin is the application origin (scheme://host). Requests to any
	// other origin are not intercepted. Empty disables the origin check.
	Origin string

	// APIPrefixes are path prefixes routed as api-call. Default: /portal/api/.
	APIPrefixes []string

	// StaticRoots are path prefixes routed as static-asset. Default: /static/.
	StaticRoots []string

	// StaticExtensions is the extension allow-list for static assets.
	// Default: DefaultStaticExtensions.
	StaticExtensions []string

	// ShellRoots are path prefixes treated as navigable app-shell routes
	// even without a navigation flag. Default: /portal/.
	ShellRoots []string
}

// DefaultRules returns the rules for the standard portal layout.
func DefaultRules() Rules {
	return Rules{
		APIPrefixes:      []string{"/portal/api/"},
		StaticRoots:      []string{"/static/"},
		StaticExtensions: DefaultStaticExtensions,
		ShellRoots:       []string{"/portal/"},
	}
}

// Classifier evaluates rules against requests.
type Classifier struct {
	rules  Rules
	origin *url.URL
}

// New creates a classifier, applying defaults for unset rule fields.
func New(rules Rules) *Classifier {
	defaults := DefaultRules()
	if rules.APIPrefixes == nil {
		rules.APIPrefixes = defaults.APIPrefixes
	}
	if rules.StaticRoots == nil {
		rules.StaticRoots = defaults.StaticRoots
	}
	if rules.StaticExtensions == nil {
		rules.StaticExtensions = defaults.StaticExtensions
	}
	if rules.ShellRoots == nil {
		rules.ShellRoots = defaults.ShellRoots
	}

	c := &Classifier{rules: rules}
	if rules.Origin != "" {
		if u, err := url.Parse(rules.Origin); err == nil {
			c.origin = u
		}
	}
	return c
}

// Intercepts reports whether the request enters the caching layer at all.
// Only same-origin GET requests are intercepted; everything else passes
// straight through to the network.
func (c *Classifier) Intercepts(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	if c.origin == nil || req.URL.Host == "" {
		// A relative URL has no origin of its own to differ.
		return true
	}
	return strings.EqualFold(req.URL.Host, c.origin.Host) &&
		strings.EqualFold(req.URL.Scheme, c.origin.Scheme)
}

// Category assigns the request to exactly one category. Rules are evaluated
// in priority order; a request matching both the API prefix and a static
// extension is an api-call.
func (c *Classifier) Category(req *http.Request) Category {
	p := req.URL.Path

	for _, prefix := range c.rules.APIPrefixes {
		if strings.HasPrefix(p, prefix) {
			return CategoryAPI
		}
	}

	for _, root := range c.rules.StaticRoots {
		if strings.HasPrefix(p, root) {
			return CategoryStatic
		}
	}
	ext := strings.ToLower(path.Ext(p))
	if ext != "" {
		for _, allowed := range c.rules.StaticExtensions {
			if ext == allowed {
				return CategoryStatic
			}
		}
	}

	if IsNavigation(req) {
		return CategoryPage
	}
	for _, root := range c.rules.ShellRoots {
		if strings.HasPrefix(p, root) {
			return CategoryPage
		}
	}

	return CategoryOther
}

// IsNavigation reports whether the request is a top-level page navigation,
// carried by the Sec-Fetch-Mode header browsers attach to document loads.
func IsNavigation(req *http.Request) bool {
	return strings.EqualFold(req.Header.Get("Sec-Fetch-Mode"), "navigate")
}
