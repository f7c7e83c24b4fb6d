// Package health serves the liveness, readiness and version endpoints of
// the not-found handler.
//
// Liveness answers 200 whenever the process is running. Readiness runs the
// registered checks concurrently and answers 503 while any of them fails:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("misslog", func(ctx context.Context) error {
//	    _, err := storage.Count(ctx, nil)
//	    return err
//	})
//	mux.Handle("/health", checker.LivenessHandler())
//	mux.Handle("/ready", checker.ReadinessHandler())
package health
