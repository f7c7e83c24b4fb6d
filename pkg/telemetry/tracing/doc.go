// Package tracing provides OpenTelemetry tracing for the not-found handler.
//
// When enabled, spans are exported over OTLP gRPC and W3C Trace Context is
// propagated on incoming requests and on requests forwarded upstream. The
// decision engine receives the tracer through Tracer() and records one span
// per interception decision, tagged with SetDecision.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	handler = tracer.Middleware(handler)
//
// When tracing is disabled every span is a noop.
package tracing
