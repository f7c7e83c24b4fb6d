package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/notfound/pkg/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		wantErr bool
		enabled bool
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name:   "disabled",
			config: &config.TracingConfig{Enabled: false},
		},
		{
			name: "enabled insecure",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     SamplerAlways,
				Endpoint:    "localhost:4317",
				Insecure:    true,
				ServiceName: "notfound-test",
			},
			enabled: true,
		},
		{
			name: "enabled without endpoint",
			config: &config.TracingConfig{
				Enabled: true,
				Sampler: SamplerAlways,
			},
			wantErr: true,
		},
		{
			name: "unknown sampler",
			config: &config.TracingConfig{
				Enabled:  true,
				Sampler:  "sometimes",
				Endpoint: "localhost:4317",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config, "1.2.3")
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}

			if tracer.Enabled() != tt.enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.enabled)
			}
			if tracer.Tracer() == nil {
				t.Fatal("expected a tracer")
			}

			_, span := tracer.Start(context.Background(), "probe")
			span.End()

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = tracer.Shutdown(ctx)
		})
	}
}

func TestDisabledTracerProducesNoopSpans(t *testing.T) {
	tracer, err := New(&config.TracingConfig{}, "")
	if err != nil {
		t.Fatal(err)
	}
	ctx, span := tracer.Start(context.Background(), "probe")
	defer span.End()

	if span.SpanContext().IsValid() {
		t.Error("expected an invalid span context from a noop tracer")
	}
	if TraceID(ctx) != "" {
		t.Errorf("expected empty trace id, got %q", TraceID(ctx))
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		want     string
		wantErr  bool
	}{
		{SamplerAlways, 0, "AlwaysOnSampler", false},
		{SamplerNever, 0, "AlwaysOffSampler", false},
		{SamplerRatio, 0.25, "TraceIDRatioBased{0.25}", false},
		{"", 0.5, "TraceIDRatioBased{0.5}", false},
		{SamplerRatio, 1.5, "", true},
		{SamplerRatio, -0.1, "", true},
		{"random", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			s, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Fatalf("createSampler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			desc := s.Description()
			if !strings.HasPrefix(desc, "ParentBased{") {
				t.Errorf("expected parent based sampler, got %q", desc)
			}
			if !strings.Contains(desc, tt.want) {
				t.Errorf("expected %q in %q", tt.want, desc)
			}
		})
	}
}

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	return &Tracer{tracer: tp.Tracer("test"), provider: tp}, exporter
}

func TestMiddleware(t *testing.T) {
	tracer, exporter := newRecordingTracer(t)

	var seenTraceID string
	handler := tracer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTraceID = TraceID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("traceparent", parent)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seenTraceID != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("expected incoming trace id to be continued, got %q", seenTraceID)
	}
	if got := rec.Header().Get(TraceIDHeader); got != seenTraceID {
		t.Errorf("expected %s header %q, got %q", TraceIDHeader, seenTraceID, got)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "HTTP GET" {
		t.Errorf("expected span name HTTP GET, got %q", spans[0].Name)
	}
	found := false
	for _, attr := range spans[0].Attributes {
		if string(attr.Key) == AttrHTTPStatus && attr.Value.AsInt64() == 404 {
			found = true
		}
	}
	if !found {
		t.Error("expected status attribute on span")
	}
}

func TestInject(t *testing.T) {
	tracer, _ := newRecordingTracer(t)

	ctx, span := tracer.Start(context.Background(), "forward")
	defer span.End()

	headers := http.Header{}
	Inject(ctx, headers)
	tp := headers.Get("traceparent")
	if !strings.Contains(tp, span.SpanContext().TraceID().String()) {
		t.Errorf("expected traceparent to carry trace id, got %q", tp)
	}

	back := Extract(context.Background(), headers)
	if TraceID(back) != span.SpanContext().TraceID().String() {
		t.Error("expected extracted context to carry the injected trace")
	}
}

func TestSetError(t *testing.T) {
	tracer, exporter := newRecordingTracer(t)

	_, span := tracer.Start(context.Background(), "failing")
	SetError(span, nil)
	SetError(span, errors.New("boom"))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Description != "boom" {
		t.Errorf("expected error status, got %+v", spans[0].Status)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected one recorded error event, got %d", len(spans[0].Events))
	}
}

func TestMiddleware_ServerErrorMarksSpan(t *testing.T) {
	tracer, exporter := newRecordingTracer(t)

	handler := tracer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status, got %+v", spans[0].Status)
	}
}

func TestSetDecision(t *testing.T) {
	tracer, exporter := newRecordingTracer(t)

	_, span := tracer.Start(context.Background(), "notfound.dispatch")
	SetDecision(span, "redirect", "redirect", "/new")
	span.End()
	_, span = tracer.Start(context.Background(), "notfound.dispatch")
	SetDecision(span, "fallback", "fallback", "")
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	want := []map[string]string{
		{AttrOutcome: "redirect", AttrAction: "redirect", AttrTarget: "/new"},
		{AttrOutcome: "fallback", AttrAction: "fallback"},
	}
	for i, s := range spans {
		got := map[string]string{}
		for _, attr := range s.Attributes {
			got[string(attr.Key)] = attr.Value.AsString()
		}
		if len(got) != len(want[i]) {
			t.Errorf("span %d attributes = %v, want %v", i, got, want[i])
			continue
		}
		for k, v := range want[i] {
			if got[k] != v {
				t.Errorf("span %d %s = %q, want %q", i, k, got[k], v)
			}
		}
	}
}
