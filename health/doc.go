// Package health reports whether the offline layer can do its job: is the
// worker serving, is the cache store reachable, is the outbox draining or
// piling up.
//
// A Checker probes one component and returns a graded Result: healthy,
// degraded, or unhealthy. Degraded means the layer still serves but with
// reduced capability, for example a worker that has installed and not yet
// activated, or an outbox backlog that is growing but below its limit.
//
// # Domain checkers
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register(health.NewWorkerChecker(w))
//	agg.Register(health.NewCacheChecker(store))
//	agg.Register(health.NewQueueChecker(queue, health.QueueCheckerConfig{WarnDepth: 50}))
//
//	results := agg.CheckAll(ctx)
//	overall := health.Overall(results)
//
// # HTTP probes
//
// RegisterHandlers mounts the standard endpoints on a mux:
//
//	/healthz  liveness, always 200 while the process runs
//	/readyz   readiness, 503 once any check is unhealthy
//	/health   detailed JSON report per check
package health
