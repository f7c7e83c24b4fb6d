// Package server wires the not-found service together and serves it over
// HTTP.
//
// NewApp builds every component from a *config.Config: the settings
// resolver, the static redirect list and optional SQL provider, the miss log
// with its retention pruner, metrics, tracing and the interceptor engine.
// The resulting Server places the site behind the not-found middleware and
// exposes the probe endpoints:
//
//	/health    liveness
//	/ready     readiness (miss log storage, redirect provider)
//	/version   build information
//	/metrics   Prometheus metrics, when enabled
//
// The site is either a directory of static content or a reverse proxy to an
// upstream origin. Run blocks until its context is canceled, then shuts the
// server down gracefully, flushes pending misses and closes the backends.
//
//	app, err := server.NewApp(cfg, server.AppOptions{ConfigPath: path})
//	if err != nil {
//	    return err
//	}
//	return app.Run(ctx)
package server
