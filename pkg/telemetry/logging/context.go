package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for run identifiers.
	RunIDKey contextKey = "run_id"

	// EnvelopeIDKey is the context key for envelope identifiers.
	EnvelopeIDKey contextKey = "envelope_id"

	// RegistryVersionKey is the context key for the registry snapshot version.
	RegistryVersionKey contextKey = "registry_version"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if v, ok := ctx.Value(RunIDKey).(string); ok {
		return v
	}
	return ""
}

// WithEnvelopeID adds an envelope ID to the context.
func WithEnvelopeID(ctx context.Context, envelopeID string) context.Context {
	return context.WithValue(ctx, EnvelopeIDKey, envelopeID)
}

// GetEnvelopeID retrieves the envelope ID from the context.
func GetEnvelopeID(ctx context.Context) string {
	if v, ok := ctx.Value(EnvelopeIDKey).(string); ok {
		return v
	}
	return ""
}

// WithRegistryVersion adds the registry snapshot version to the context.
func WithRegistryVersion(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, RegistryVersionKey, version)
}

// GetRegistryVersion retrieves the registry snapshot version from the context.
func GetRegistryVersion(ctx context.Context) string {
	if v, ok := ctx.Value(RegistryVersionKey).(string); ok {
		return v
	}
	return ""
}

// extractContextFields returns the log attributes carried by ctx, including
// the trace and span ids of an active OpenTelemetry span.
func extractContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var fields []slog.Attr

	if v := GetRunID(ctx); v != "" {
		fields = append(fields, slog.String("run_id", v))
	}
	if v := GetEnvelopeID(ctx); v != "" {
		fields = append(fields, slog.String("envelope_id", v))
	}
	if v := GetRegistryVersion(ctx); v != "" {
		fields = append(fields, slog.String("registry_version", v))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return fields
}

// ContextHandler is a slog.Handler that adds context fields to every record
// logged through the *Context methods.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if fields := extractContextFields(ctx); len(fields) > 0 {
		r = r.Clone()
		r.AddAttrs(fields...)
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
