// Package lifecycle drives a worker through install, waiting, and
// activation, and keeps the named caches aligned with the running version.
//
// A Controller owns the phase machine. Install precaches the application
// shell for the new version; Activate evicts caches that belong to older
// versions and takes over open pages. SkipWaiting flags the controller to
// bypass the waiting phase so a freshly installed version can activate
// without waiting for the previous one to wind down.
//
// Contract:
//
//   - Concurrency: all Controller methods are safe for concurrent use.
//   - Context: Install and Activate honor ctx; a cancelled install reverts
//     the controller to the uninstalled phase so it can be retried.
//   - Errors: phase violations wrap ErrPhase. Per-URL precache failures do
//     not fail the install; they are reported through PrecacheStats.
package lifecycle
