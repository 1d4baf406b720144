// Package classify assigns intercepted requests to caching categories.
//
// Classification is a pure function of the request method, path, and
// navigation flag: every request maps to exactly one Category, evaluated in
// priority order with the first match winning. The classifier holds no state
// beyond its rules and is safe for concurrent use.
package classify
