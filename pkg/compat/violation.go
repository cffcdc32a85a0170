package compat

import "fmt"

// Kind classifies a compatibility violation.
type Kind string

const (
	KindInvalidVersion          Kind = "invalid_version"
	KindVersionRegressed        Kind = "version_regressed"
	KindVersionNotBumped        Kind = "version_not_bumped"
	KindStableIdentifierRemoved Kind = "stable_identifier_removed"
	KindStableIdentifierRetyped Kind = "stable_identifier_retyped"
	KindSignalRemoved           Kind = "signal_removed"
	KindSignalRepurposed        Kind = "signal_repurposed"
	KindFieldRemoved            Kind = "field_removed"
	KindFieldNarrowed           Kind = "field_narrowed"
	KindFieldRetyped            Kind = "field_retyped"
	KindRequiredFieldAdded      Kind = "required_field_added"
	KindRuleRemoved             Kind = "rule_removed"
	KindRuleRepurposed          Kind = "rule_repurposed"
	KindFloorLowered            Kind = "floor_lowered"
)

// Violation is one incompatible change between two revisions.
type Violation struct {
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject"`
	Detail  string `json:"detail"`
}

// String returns a single-line description of the violation.
func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Kind, v.Subject, v.Detail)
}
