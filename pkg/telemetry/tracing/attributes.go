package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys use the "verdict.*" namespace.
const (
	AttrEnvelopeID      = "verdict.envelope_id"
	AttrSignalID        = "verdict.signal_id"
	AttrEscalation      = "verdict.escalation"
	AttrViolations      = "verdict.violations"
	AttrRegistryVersion = "verdict.registry.version"
	AttrRegistryRules   = "verdict.registry.rules"
	AttrBatchSize       = "verdict.batch.size"
	AttrBatchInvalid    = "verdict.batch.invalid"
	AttrRunID           = "verdict.run_id"
)

// SetEvaluationAttributes sets the attributes of one envelope evaluation.
func SetEvaluationAttributes(span trace.Span, envelopeID, signalID, escalation string, violations int) {
	span.SetAttributes(
		attribute.String(AttrEnvelopeID, envelopeID),
		attribute.String(AttrSignalID, signalID),
		attribute.String(AttrEscalation, escalation),
		attribute.Int(AttrViolations, violations),
	)
}

// SetRegistryAttributes sets the attributes of the snapshot in use.
func SetRegistryAttributes(span trace.Span, version string, rules int) {
	span.SetAttributes(
		attribute.String(AttrRegistryVersion, version),
		attribute.Int(AttrRegistryRules, rules),
	)
}

// SetBatchAttributes sets the attributes of a batch evaluation.
func SetBatchAttributes(span trace.Span, size, invalid int) {
	span.SetAttributes(
		attribute.Int(AttrBatchSize, size),
		attribute.Int(AttrBatchInvalid, invalid),
	)
}
