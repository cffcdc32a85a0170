package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"sta-hq/verdict/pkg/config"
)

func newTestTracer(t *testing.T, ratio float64) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()

	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})

	exporter := tracetest.NewInMemoryExporter()
	cfg := &config.TracingConfig{Enabled: true, SampleRatio: ratio, ServiceName: "verdict-test"}
	tracer, err := NewWithExporter(cfg, "test", exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer, exporter
}

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(context.Background(), &config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer.Enabled() {
		t.Error("Enabled() = true, want false")
	}

	_, span := tracer.Start(context.Background(), "noop")
	span.End()
	if span.SpanContext().IsValid() {
		t.Error("disabled tracer produced a valid span context")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(context.Background(), nil, "test"); err == nil {
		t.Error("New(nil) error = nil, want error")
	}
}

func TestTracer_ExportsSpans(t *testing.T) {
	tracer, exporter := newTestTracer(t, 1.0)

	ctx, span := tracer.Start(context.Background(), "engine.evaluate_batch")
	SetBatchAttributes(span, 10, 2)
	SetRegistryAttributes(span, "abc123", 4)
	if TraceID(ctx) == "" {
		t.Error("TraceID() empty inside a sampled span")
	}
	SetStatus(span, errors.New("boom"))
	span.End()

	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	got := spans[0]
	if got.Name != "engine.evaluate_batch" {
		t.Errorf("span name = %q", got.Name)
	}
	if got.Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", got.Status.Code)
	}

	attrs := map[string]bool{}
	for _, kv := range got.Attributes {
		attrs[string(kv.Key)] = true
	}
	for _, key := range []string{AttrBatchSize, AttrBatchInvalid, AttrRegistryVersion, AttrRegistryRules} {
		if !attrs[key] {
			t.Errorf("missing attribute %s", key)
		}
	}
}

func TestTracer_NeverSample(t *testing.T) {
	tracer, exporter := newTestTracer(t, 0)

	_, span := tracer.Start(context.Background(), "dropped")
	span.End()
	_ = tracer.ForceFlush(context.Background())

	if n := len(exporter.GetSpans()); n != 0 {
		t.Errorf("exported %d spans with ratio 0, want 0", n)
	}
}

func TestCreateSampler_InvalidRatio(t *testing.T) {
	for _, r := range []float64{-0.1, 1.5} {
		if _, err := createSampler(r); err == nil {
			t.Errorf("createSampler(%v) error = nil, want error", r)
		}
	}
}

func TestHTTPMiddleware_ContinuesTrace(t *testing.T) {
	tracer, exporter := newTestTracer(t, 1.0)

	parentCtx, parent := tracer.Start(context.Background(), "client")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	otel.GetTextMapPropagator().Inject(parentCtx, propagation.HeaderCarrier(req.Header))
	parent.End()

	var seen string
	h := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != TraceID(parentCtx) {
		t.Errorf("handler trace id = %q, want %q", seen, TraceID(parentCtx))
	}

	_ = tracer.ForceFlush(context.Background())
	if n := len(exporter.GetSpans()); n != 2 {
		t.Errorf("exported %d spans, want 2", n)
	}
}

func TestHTTPMiddleware_RecordsServerError(t *testing.T) {
	tracer, exporter := newTestTracer(t, 1.0)

	h := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	_ = tracer.ForceFlush(context.Background())
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	if got := spans[0].Status.Code; got != codes.Error {
		t.Errorf("span status = %v, want Error", got)
	}
	var status int64
	for _, kv := range spans[0].Attributes {
		if string(kv.Key) == attrHTTPStatus {
			status = kv.Value.AsInt64()
		}
	}
	if status != http.StatusServiceUnavailable {
		t.Errorf("%s = %d, want 503", attrHTTPStatus, status)
	}
}
