package compat

import (
	"sta-hq/verdict/pkg/envelope"
	"sta-hq/verdict/pkg/escalation"
)

// Revision is the compatibility-relevant view of one rule pack version.
type Revision struct {
	// Version is the pack's semantic version, e.g. "1.2.0".
	Version string

	// Digest identifies the pack content. Two revisions with equal
	// versions must have equal digests.
	Digest string

	// StableIdentifiers maps each envelope identifier to its kind.
	StableIdentifiers map[string]envelope.Kind

	// Signals maps signal_id to its definition.
	Signals map[string]envelope.SignalDefinition

	// Rules maps rule_id to the attributes the guard compares.
	Rules map[string]RuleInfo
}

// RuleInfo holds the rule attributes that may not change within a major version.
type RuleInfo struct {
	SignalID           string
	ViolationType      string
	EscalationLevelMin escalation.Level
	Deprecated         bool
}
