// Package metrics provides Prometheus metrics for the not-found handler.
//
// # Metrics Categories
//
//   - Decision Metrics: outcome counts and decision latency of the interceptor
//   - Lookup Metrics: redirect store lookups by source and result, loaded redirects
//   - Miss Log Metrics: misses written and dropped by reason
//   - Request Metrics: HTTP requests served by method and status class
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	engine := interceptor.NewEngine(s, resolver.LoggingMode, store, misses,
//		interceptor.Options{Observer: collector})
//	store := redirects.NewStore(static, provider, collector, logger)
//	misses := misslog.NewLogger(backend, loggerCfg, collector, logger)
//
//	mux.Handle("/metrics", collector.Handler())
//
// Every Collector owns its registry, so tests can create as many as they need.
package metrics
