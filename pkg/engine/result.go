package engine

import (
	"sta-hq/verdict/pkg/envelope"
	"sta-hq/verdict/pkg/escalation"
)

// Result is the verdict for one envelope. It is owned by the caller.
type Result struct {
	EnvelopeID          string  `json:"envelope_id"`
	SignalID            string  `json:"signal_id"`
	StructuralRiskScore float64 `json:"structural_risk_score"`

	// Violations holds one entry per matching rule, in registration order.
	// It is never nil for a valid envelope.
	Violations []escalation.Violation `json:"violations"`

	// Escalation is max(ScoreLevel, FloorLevel).
	Escalation escalation.Level `json:"escalation"`
	ScoreLevel escalation.Level `json:"score_level"`
	FloorLevel escalation.Level `json:"floor_level"`

	// RegistryVersion identifies the snapshot that produced the result.
	RegistryVersion string `json:"registry_version"`

	// Nonconformances lists signal definition mismatches when conformance
	// checking is enabled.
	Nonconformances []envelope.Nonconformance `json:"nonconformances,omitempty"`
}

// RuleIDs returns the ids of the rules that matched.
func (r *Result) RuleIDs() []string {
	ids := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		ids[i] = v.RuleID
	}
	return ids
}

// Triggered reports whether any rule matched.
func (r *Result) Triggered() bool {
	return len(r.Violations) > 0
}

// BatchItem is one entry of a batch evaluation. Exactly one of Result and
// Err is meaningful; Result still carries the envelope ids when Err is an
// invalid envelope error.
type BatchItem struct {
	Index  int
	Result Result
	Err    error
}
