package compat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sta-hq/verdict/pkg/envelope"
	"sta-hq/verdict/pkg/escalation"
)

func baseRevision() Revision {
	return Revision{
		Version: "1.0.0",
		Digest:  "aaaa",
		StableIdentifiers: map[string]envelope.Kind{
			"sta_version":     envelope.KindString,
			"envelope_id":     envelope.KindString,
			"signal_id":       envelope.KindString,
			"signal_category": envelope.KindString,
			"signal_type":     envelope.KindString,
		},
		Signals: map[string]envelope.SignalDefinition{
			"FIN.BS.EQUATION_BREAK": {
				SignalID:       "FIN.BS.EQUATION_BREAK",
				SignalCategory: "financial",
				SignalType:     "constraint",
				RequiredFields: map[string]envelope.Kind{"delta": envelope.KindNumber},
				OptionalFields: map[string]envelope.Kind{"tolerance_abs": envelope.KindNumber},
			},
		},
		Rules: map[string]RuleInfo{
			"R-FIN-001": {
				SignalID:           "FIN.BS.EQUATION_BREAK",
				ViolationType:      "equation_break",
				EscalationLevelMin: escalation.LevelBoardReview,
			},
		},
	}
}

// next returns a deep copy of rev with the version bumped to version.
func next(rev Revision, version string) Revision {
	out := Revision{
		Version:           version,
		Digest:            rev.Digest + "+",
		StableIdentifiers: map[string]envelope.Kind{},
		Signals:           map[string]envelope.SignalDefinition{},
		Rules:             map[string]RuleInfo{},
	}
	for k, v := range rev.StableIdentifiers {
		out.StableIdentifiers[k] = v
	}
	for k, d := range rev.Signals {
		cp := d
		cp.RequiredFields = map[string]envelope.Kind{}
		cp.OptionalFields = map[string]envelope.Kind{}
		for f, kind := range d.RequiredFields {
			cp.RequiredFields[f] = kind
		}
		for f, kind := range d.OptionalFields {
			cp.OptionalFields[f] = kind
		}
		out.Signals[k] = cp
	}
	for k, v := range rev.Rules {
		out.Rules[k] = v
	}
	return out
}

const signal = "FIN.BS.EQUATION_BREAK"

func TestCheck_AdditiveChangesAccepted(t *testing.T) {
	oldRev := baseRevision()
	newRev := next(oldRev, "1.1.0")

	newRev.Signals[signal].OptionalFields["currency"] = envelope.KindString
	newRev.Signals["FIN.CF.NEGATIVE"] = envelope.SignalDefinition{SignalID: "FIN.CF.NEGATIVE", SignalCategory: "financial", SignalType: "threshold"}
	newRev.Rules["R-FIN-002"] = RuleInfo{SignalID: "FIN.CF.NEGATIVE", ViolationType: "negative_cash", EscalationLevelMin: escalation.LevelAdvisory}
	raised := newRev.Rules["R-FIN-001"]
	raised.EscalationLevelMin = escalation.LevelCritical
	newRev.Rules["R-FIN-001"] = raised

	report := Check(oldRev, newRev)
	assert.True(t, report.OK(), "violations: %v", report.Violations)
	assert.NoError(t, report.Err())
}

func TestCheck_RequiredToOptionalAccepted(t *testing.T) {
	oldRev := baseRevision()
	newRev := next(oldRev, "1.0.1")
	def := newRev.Signals[signal]
	delete(def.RequiredFields, "delta")
	def.OptionalFields["delta"] = envelope.KindNumber

	report := Check(oldRev, newRev)
	assert.True(t, report.OK(), "violations: %v", report.Violations)
}

func TestCheck_Violations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Revision)
		kind    Kind
		subject string
	}{
		{"required field removed", func(r *Revision) {
			delete(r.Signals[signal].RequiredFields, "delta")
		}, KindFieldRemoved, signal + ".delta"},
		{"optional field removed", func(r *Revision) {
			delete(r.Signals[signal].OptionalFields, "tolerance_abs")
		}, KindFieldRemoved, signal + ".tolerance_abs"},
		{"optional narrowed to required", func(r *Revision) {
			def := r.Signals[signal]
			delete(def.OptionalFields, "tolerance_abs")
			def.RequiredFields["tolerance_abs"] = envelope.KindNumber
		}, KindFieldNarrowed, signal + ".tolerance_abs"},
		{"field retyped", func(r *Revision) {
			r.Signals[signal].RequiredFields["delta"] = envelope.KindString
		}, KindFieldRetyped, signal + ".delta"},
		{"required field added", func(r *Revision) {
			r.Signals[signal].RequiredFields["currency"] = envelope.KindString
		}, KindRequiredFieldAdded, signal + ".currency"},
		{"signal removed", func(r *Revision) {
			delete(r.Signals, signal)
		}, KindSignalRemoved, signal},
		{"signal repurposed", func(r *Revision) {
			def := r.Signals[signal]
			def.SignalType = "threshold"
			r.Signals[signal] = def
		}, KindSignalRepurposed, signal},
		{"stable identifier removed", func(r *Revision) {
			delete(r.StableIdentifiers, "sta_version")
		}, KindStableIdentifierRemoved, "sta_version"},
		{"stable identifier retyped", func(r *Revision) {
			r.StableIdentifiers["envelope_id"] = envelope.KindNumber
		}, KindStableIdentifierRetyped, "envelope_id"},
		{"rule removed", func(r *Revision) {
			delete(r.Rules, "R-FIN-001")
		}, KindRuleRemoved, "R-FIN-001"},
		{"rule repurposed", func(r *Revision) {
			rule := r.Rules["R-FIN-001"]
			rule.ViolationType = "balance_sheet_gap"
			r.Rules["R-FIN-001"] = rule
		}, KindRuleRepurposed, "R-FIN-001"},
		{"floor lowered", func(r *Revision) {
			rule := r.Rules["R-FIN-001"]
			rule.EscalationLevelMin = escalation.LevelAdvisory
			r.Rules["R-FIN-001"] = rule
		}, KindFloorLowered, "R-FIN-001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldRev := baseRevision()
			newRev := next(oldRev, "1.1.0")
			tt.mutate(&newRev)

			report := Check(oldRev, newRev)
			require.False(t, report.OK())
			require.Len(t, report.Violations, 1, "violations: %v", report.Violations)
			assert.Equal(t, tt.kind, report.Violations[0].Kind)
			assert.Equal(t, tt.subject, report.Violations[0].Subject)
		})
	}
}

func TestCheck_DeprecatedRuleMayBeRemoved(t *testing.T) {
	oldRev := baseRevision()
	rule := oldRev.Rules["R-FIN-001"]
	rule.Deprecated = true
	oldRev.Rules["R-FIN-001"] = rule

	newRev := next(oldRev, "1.1.0")
	delete(newRev.Rules, "R-FIN-001")

	assert.True(t, Check(oldRev, newRev).OK())
}

func TestCheck_Versions(t *testing.T) {
	tests := []struct {
		name       string
		oldVersion string
		newVersion string
		sameDigest bool
		want       []Kind
	}{
		{"minor bump", "1.0.0", "1.1.0", false, nil},
		{"regressed", "1.2.0", "1.1.0", false, []Kind{KindVersionRegressed}},
		{"not bumped", "1.2.0", "1.2.0", false, []Kind{KindVersionNotBumped}},
		{"identical", "1.2.0", "1.2.0", true, nil},
		{"invalid new", "1.2.0", "latest", false, []Kind{KindInvalidVersion}},
		{"invalid both", "", "x", false, []Kind{KindInvalidVersion}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldRev := baseRevision()
			oldRev.Version = tt.oldVersion
			newRev := next(oldRev, tt.newVersion)
			if tt.sameDigest {
				newRev.Digest = oldRev.Digest
			}

			report := Check(oldRev, newRev)
			assert.Equal(t, tt.want, report.Kinds())
		})
	}
}

func TestCheck_MajorBumpWaivesStructuralChecks(t *testing.T) {
	oldRev := baseRevision()
	newRev := next(oldRev, "2.0.0")
	delete(newRev.Signals, signal)
	delete(newRev.Rules, "R-FIN-001")

	report := Check(oldRev, newRev)
	assert.True(t, report.MajorBump)
	assert.True(t, report.OK(), "violations: %v", report.Violations)
}

func TestCheck_MajorBumpStillChecksOrdering(t *testing.T) {
	oldRev := baseRevision()
	oldRev.Version = "2.0.0"
	newRev := next(oldRev, "1.9.0")

	report := Check(oldRev, newRev)
	assert.False(t, report.MajorBump)
	assert.Equal(t, []Kind{KindVersionRegressed}, report.Kinds())
}

func TestReport_Err(t *testing.T) {
	oldRev := baseRevision()
	newRev := next(oldRev, "1.1.0")
	delete(newRev.Signals[signal].RequiredFields, "delta")

	err := Check(oldRev, newRev).Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatible))

	var incompatible *IncompatibleError
	require.True(t, errors.As(err, &incompatible))
	assert.Equal(t, "1.1.0", incompatible.Report.NewVersion)
	assert.Contains(t, err.Error(), "field_removed")
}
