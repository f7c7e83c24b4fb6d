// Package middleware provides the HTTP middleware of the not-found service.
//
// # Middleware Chain
//
// The server assembles the chain outermost first:
//
//	handler = Recovery(Tracing(RequestID(Logging(Metrics(NotFound(site))))))
//
//   - RecoveryMiddleware: recover from panics, answer 500
//   - RequestIDMiddleware: assign a request ID, add it to the context and the response
//   - LoggingMiddleware: log method, path, status, latency and the not-found outcome
//   - MetricsMiddleware: report requests to Prometheus
//   - NotFoundMiddleware: hold back 404 responses and captured errors and let
//     the interceptor engine redirect them or show the fallback page
//
// # Reporting errors
//
// Site handlers that fail without writing a response report the error so it
// can be classified:
//
//	if err := render(w, page); err != nil {
//	    middleware.ReportError(r.Context(), err)
//	    return
//	}
//
// Panics inside the site handler are captured the same way.
package middleware
