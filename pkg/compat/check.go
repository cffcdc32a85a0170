package compat

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Masterminds/semver/v3"

	"sta-hq/verdict/pkg/envelope"
)

// Report is the result of comparing two revisions.
type Report struct {
	OldVersion string      `json:"old_version"`
	NewVersion string      `json:"new_version"`
	MajorBump  bool        `json:"major_bump"`
	Violations []Violation `json:"violations"`
}

// OK reports whether the new revision is compatible with the old one.
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// Err returns an *IncompatibleError when the report has violations, nil otherwise.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	return &IncompatibleError{Report: r}
}

// Kinds returns the distinct violation kinds in report order.
func (r Report) Kinds() []Kind {
	var kinds []Kind
	for _, v := range r.Violations {
		if !slices.Contains(kinds, v.Kind) {
			kinds = append(kinds, v.Kind)
		}
	}
	return kinds
}

// Check compares oldRev with newRev. Version checks always apply; the
// structural checks are skipped when newRev bumps the major version.
// Unparseable versions are reported and the structural checks still run.
func Check(oldRev, newRev Revision) Report {
	c := &checker{report: Report{OldVersion: oldRev.Version, NewVersion: newRev.Version}}

	c.checkVersions(oldRev, newRev)
	if !c.report.MajorBump {
		c.checkStableIdentifiers(oldRev, newRev)
		c.checkSignals(oldRev, newRev)
		c.checkRules(oldRev, newRev)
	}

	return c.report
}

type checker struct {
	report Report
}

func (c *checker) add(kind Kind, subject, format string, args ...any) {
	c.report.Violations = append(c.report.Violations, Violation{
		Kind:    kind,
		Subject: subject,
		Detail:  fmt.Sprintf(format, args...),
	})
}

func (c *checker) checkVersions(oldRev, newRev Revision) {
	oldV, oldErr := semver.NewVersion(oldRev.Version)
	if oldErr != nil {
		c.add(KindInvalidVersion, "old", "cannot parse %q: %v", oldRev.Version, oldErr)
	}
	newV, newErr := semver.NewVersion(newRev.Version)
	if newErr != nil {
		c.add(KindInvalidVersion, "new", "cannot parse %q: %v", newRev.Version, newErr)
	}
	if oldErr != nil || newErr != nil {
		return
	}

	switch {
	case newV.LessThan(oldV):
		c.add(KindVersionRegressed, "version", "%s is lower than %s", newV, oldV)
	case newV.Equal(oldV) && oldRev.Digest != newRev.Digest:
		c.add(KindVersionNotBumped, "version", "content changed but version is still %s", newV)
	}

	c.report.MajorBump = newV.Major() > oldV.Major()
}

func (c *checker) checkStableIdentifiers(oldRev, newRev Revision) {
	for _, name := range slices.Sorted(maps.Keys(oldRev.StableIdentifiers)) {
		oldKind := oldRev.StableIdentifiers[name]
		newKind, ok := newRev.StableIdentifiers[name]
		if !ok {
			c.add(KindStableIdentifierRemoved, name, "stable identifier no longer declared")
			continue
		}
		if newKind != oldKind {
			c.add(KindStableIdentifierRetyped, name, "kind changed from %s to %s", oldKind, newKind)
		}
	}
}

func (c *checker) checkSignals(oldRev, newRev Revision) {
	for _, id := range slices.Sorted(maps.Keys(oldRev.Signals)) {
		oldDef := oldRev.Signals[id]
		newDef, ok := newRev.Signals[id]
		if !ok {
			c.add(KindSignalRemoved, id, "signal definition no longer declared")
			continue
		}
		if oldDef.SignalCategory != newDef.SignalCategory || oldDef.SignalType != newDef.SignalType {
			c.add(KindSignalRepurposed, id, "category/type changed from %s/%s to %s/%s",
				oldDef.SignalCategory, oldDef.SignalType, newDef.SignalCategory, newDef.SignalType)
		}
		c.checkFields(id, oldDef, newDef)
	}
}

func (c *checker) checkFields(signalID string, oldDef, newDef envelope.SignalDefinition) {
	for _, name := range oldDef.FieldNames() {
		subject := signalID + "." + name
		oldKind, oldRequired, _ := oldDef.FieldKind(name)
		newKind, newRequired, declared := newDef.FieldKind(name)
		if !declared {
			c.add(KindFieldRemoved, subject, "field no longer declared")
			continue
		}
		if !oldRequired && newRequired {
			c.add(KindFieldNarrowed, subject, "optional field became required")
		}
		if newKind != oldKind {
			c.add(KindFieldRetyped, subject, "kind changed from %s to %s", oldKind, newKind)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(newDef.RequiredFields)) {
		if _, _, declared := oldDef.FieldKind(name); !declared {
			c.add(KindRequiredFieldAdded, signalID+"."+name, "new field must be optional")
		}
	}
}

func (c *checker) checkRules(oldRev, newRev Revision) {
	for _, id := range slices.Sorted(maps.Keys(oldRev.Rules)) {
		oldRule := oldRev.Rules[id]
		newRule, ok := newRev.Rules[id]
		if !ok {
			if !oldRule.Deprecated {
				c.add(KindRuleRemoved, id, "rule removed without prior deprecation")
			}
			continue
		}
		if oldRule.SignalID != newRule.SignalID {
			c.add(KindRuleRepurposed, id, "signal_id changed from %s to %s", oldRule.SignalID, newRule.SignalID)
		}
		if oldRule.ViolationType != newRule.ViolationType {
			c.add(KindRuleRepurposed, id, "violation_type changed from %s to %s", oldRule.ViolationType, newRule.ViolationType)
		}
		if newRule.EscalationLevelMin < oldRule.EscalationLevelMin {
			c.add(KindFloorLowered, id, "escalation_level_min lowered from %s to %s",
				oldRule.EscalationLevelMin, newRule.EscalationLevelMin)
		}
	}
}
