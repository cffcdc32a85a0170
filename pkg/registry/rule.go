package registry

import (
	"sta-hq/verdict/pkg/compat"
	"sta-hq/verdict/pkg/condition"
	"sta-hq/verdict/pkg/escalation"
)

// Rule is a registered rule. The builder stores a deep copy and the
// snapshot hands out deep copies, so a registered rule cannot be changed
// through any Rule value.
type Rule struct {
	// ID is the globally unique rule_id.
	ID string

	// SignalID references the signal this rule applies to.
	SignalID string

	// Condition is the predicate over envelope fields. A nil condition
	// matches every envelope of the signal.
	Condition *condition.Node

	// ViolationType tags the violation produced when the rule matches.
	ViolationType string

	// EscalationLevelMin is the floor contributed by a matching rule.
	EscalationLevelMin escalation.Level

	// Description is free text used in reports.
	Description string

	// Deprecated marks a rule scheduled for removal. Deprecated rules are
	// still evaluated; they may be removed in the next revision.
	Deprecated bool
}

// Matches reports whether the rule's condition holds for src.
func (r *Rule) Matches(src condition.Source) bool {
	return condition.Evaluate(r.Condition, src)
}

// Violation returns the violation produced when r matches.
func (r *Rule) Violation() escalation.Violation {
	return escalation.Violation{
		RuleID:             r.ID,
		ViolationType:      r.ViolationType,
		EscalationLevelMin: r.EscalationLevelMin,
	}
}

func (r *Rule) clone() Rule {
	c := *r
	c.Condition = r.Condition.Clone()
	return c
}

func (r *Rule) info() compat.RuleInfo {
	return compat.RuleInfo{
		SignalID:           r.SignalID,
		ViolationType:      r.ViolationType,
		EscalationLevelMin: r.EscalationLevelMin,
		Deprecated:         r.Deprecated,
	}
}

func (r *Rule) validate() error {
	if r.ID == "" {
		return &InvalidRuleError{Field: "rule_id", Message: "rule_id is required"}
	}
	if r.SignalID == "" {
		return &InvalidRuleError{RuleID: r.ID, Field: "signal_id", Message: "signal_id is required"}
	}
	if r.ViolationType == "" {
		return &InvalidRuleError{RuleID: r.ID, Field: "violation_type", Message: "violation_type is required"}
	}
	if !r.EscalationLevelMin.IsValid() {
		return &InvalidRuleError{
			RuleID:  r.ID,
			Field:   "escalation_level_min",
			Message: "must be one of none, advisory, board_review, critical",
		}
	}
	if err := condition.Validate(r.Condition); err != nil {
		return &InvalidRuleError{RuleID: r.ID, Field: "condition", Message: "invalid condition", Cause: err}
	}
	return nil
}
