package tracing

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials/insecure"

	"sta-hq/verdict/pkg/config"
)

// InstrumentationName is the tracer name used for spans created here.
const InstrumentationName = "sta-hq/verdict"

// Tracer owns the OpenTelemetry tracer provider.
type Tracer struct {
	config   *config.TracingConfig
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	enabled  bool
}

// New creates a Tracer from the configuration. It installs the provider
// and the W3C propagator globally, so packages that call otel.Tracer pick it
// up. When tracing is disabled a noop tracer is returned and the globals are
// left alone.
//
// The tracer must be shut down when no longer needed:
//
//	defer tracer.Shutdown(context.Background())
func New(ctx context.Context, cfg *config.TracingConfig, version string) (*Tracer, error) {
	if cfg == nil {
		return nil, errors.New("tracing config is nil")
	}
	if !cfg.Enabled {
		return &Tracer{
			config: cfg,
			tracer: noop.NewTracerProvider().Tracer(InstrumentationName),
		}, nil
	}

	exporter, err := createOTLPExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}
	return NewWithExporter(cfg, version, exporter)
}

// NewWithExporter creates an enabled Tracer that sends spans to exporter.
func NewWithExporter(cfg *config.TracingConfig, version string, exporter sdktrace.SpanExporter) (*Tracer, error) {
	sampler, err := createSampler(cfg.SampleRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "verdict"
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(Propagator())

	return &Tracer{
		config:   cfg,
		tracer:   provider.Tracer(InstrumentationName),
		provider: provider,
		enabled:  true,
	}, nil
}

// Start creates a new span linked to the parent span in ctx.
//
//	ctx, span := tracer.Start(ctx, "operation")
//	defer span.End()
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes any pending spans and shuts down the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.enabled || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// ForceFlush exports all ended spans.
func (t *Tracer) ForceFlush(ctx context.Context) error {
	if !t.enabled || t.provider == nil {
		return nil
	}
	return t.provider.ForceFlush(ctx)
}

// Enabled returns whether tracing is enabled.
func (t *Tracer) Enabled() bool {
	return t.enabled
}

// createOTLPExporter creates an OTLP gRPC exporter.
func createOTLPExporter(ctx context.Context, cfg *config.TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}

	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}

// createSampler samples by trace id ratio and respects the parent's
// decision when there is one.
func createSampler(ratio float64) (sdktrace.Sampler, error) {
	var base sdktrace.Sampler
	switch {
	case ratio < 0 || ratio > 1:
		return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
	case ratio == 1:
		base = sdktrace.AlwaysSample()
	case ratio == 0:
		base = sdktrace.NeverSample()
	default:
		base = sdktrace.TraceIDRatioBased(ratio)
	}
	return sdktrace.ParentBased(base), nil
}

// Propagator returns the W3C trace context and baggage propagator.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// TraceID returns the trace ID from the context, or "" without a valid span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// SetStatus records err on span and sets its status.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("error", true))
		return
	}
	span.SetStatus(codes.Ok, "")
}
