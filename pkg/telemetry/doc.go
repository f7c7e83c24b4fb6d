// Package telemetry groups the observability packages of the not-found
// handler.
//
//   - logging: slog setup with query parameter redaction and file rotation
//   - metrics: Prometheus collectors for decisions, lookups and the miss log
//   - tracing: OpenTelemetry spans exported over OTLP
//   - health: liveness and readiness endpoints
package telemetry
