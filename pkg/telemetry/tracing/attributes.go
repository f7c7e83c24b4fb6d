package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for request spans.
const (
	AttrHTTPMethod = "http.method"
	AttrHTTPTarget = "http.target"
	AttrHTTPHost   = "http.host"
	AttrHTTPStatus = "http.status_code"
)

// Attribute keys for decision spans.
const (
	AttrOutcome = "notfound.outcome"
	AttrAction  = "notfound.action"
	AttrTarget  = "notfound.target"
)

func serverSpanOptions(r *http.Request) []trace.SpanStartOption {
	return []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(AttrHTTPMethod, r.Method),
			attribute.String(AttrHTTPTarget, r.URL.Path),
			attribute.String(AttrHTTPHost, r.Host),
		),
	}
}

// SetHTTPStatus records the final response status on span. 5xx responses
// also mark the span failed.
func SetHTTPStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatus, status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// SetDecision records a not-found decision on span. target is omitted when
// empty.
func SetDecision(span trace.Span, outcome, action, target string) {
	span.SetAttributes(
		attribute.String(AttrOutcome, outcome),
		attribute.String(AttrAction, action),
	)
	if target != "" {
		span.SetAttributes(attribute.String(AttrTarget, target))
	}
}
