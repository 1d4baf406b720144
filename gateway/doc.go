// Package gateway runs the offline layer as a local HTTP daemon that fronts
// an application origin.
//
// The gateway owns a worker and a deferred-request pipeline and exposes them
// over three surfaces:
//
//   - Every request that is not claimed below is answered through the
//     worker: GETs go through the caching strategies, other methods pass
//     through to the origin. A mutation carrying an X-Sync-Tag header is
//     buffered first; if the origin is unreachable it lands in the outbox
//     and is replayed once connectivity returns.
//   - POST /offline/command relays page commands (skip-waiting, clear-cache,
//     cache-urls) to the worker. POST /offline/push delivers a push payload,
//     POST /offline/kick hints that connectivity is back so pending sync
//     tags replay immediately, and GET /offline/notifications lists what is
//     on display.
//   - GET /healthz, /readyz, and /health report liveness, readiness, and the
//     full check detail for the worker, the cache store, and the outbox.
//
// Configuration comes from GATEWAY_* and OFFLINE_* environment variables:
//
//	cfg, err := gateway.ConfigFromEnv()
//	if err != nil {
//		return err
//	}
//	srv, err := gateway.NewServer(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer srv.Close()
//	return srv.ListenAndServe(ctx)
//
// cmd/offlined is the thin binary around exactly this sequence.
package gateway
