// Package health reports whether the service and its outbound dependencies
// can serve traffic.
//
// Checkers are registered on an Aggregator and exposed over HTTP:
//
//	agg := health.NewAggregator(5 * time.Second)
//	agg.Register(health.NewBreakerChecker(metadataBreaker, health.Critical))
//	agg.Register(health.NewBreakerChecker(rewriteBreaker, health.Optional))
//	health.RegisterHandlers(mux, agg)
//
// An open breaker on a critical dependency makes the service unhealthy; on
// an optional dependency (one with a fallback) it only degrades it.
package health
