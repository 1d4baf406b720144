// Package push turns incoming push messages into notifications and routes
// notification interactions back into the application.
//
// Push payloads arrive as untrusted JSON. DecodePayload never fails: a
// malformed or empty payload decodes to the configured defaults, so the user
// always sees exactly one notification per push. Deep-link targets are
// validated against the application origin; a cross-origin target is
// replaced with the root path rather than followed.
//
// The Handler depends on two small interfaces. Notifier shows and closes
// notifications; Clients lists, focuses, and opens pages. MemoryNotifier and
// MemoryClients are in-process implementations suitable both for tests and
// for hosts that track this state themselves.
package push
