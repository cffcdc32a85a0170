package registry

import (
	"maps"
	"slices"
	"time"

	"sta-hq/verdict/pkg/compat"
	"sta-hq/verdict/pkg/condition"
	"sta-hq/verdict/pkg/envelope"
	"sta-hq/verdict/pkg/escalation"
)

// PackInfo identifies a rule pack.
type PackInfo struct {
	ID          string `json:"id" yaml:"id"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Snapshot is an immutable rule registry. All methods are safe for
// concurrent use without locking.
type Snapshot struct {
	pack     PackInfo
	rules    []*Rule
	byID     map[string]*Rule
	bySignal map[string][]*Rule
	signals  map[string]envelope.SignalDefinition
	stable   map[string]envelope.Kind
	policy   *escalation.Policy
	digest   string
	source   string
	loadedAt time.Time
}

// Empty returns a snapshot with no rules, no signals and an empty threshold
// table. Every envelope evaluated against it yields no violations and
// escalation none.
func Empty() *Snapshot {
	return NewBuilder().Build()
}

// RulesFor returns the rules registered for signalID in registration order.
// An unknown signal yields an empty slice. The rules are deep copies.
func (s *Snapshot) RulesFor(signalID string) []Rule {
	refs := s.bySignal[signalID]
	out := make([]Rule, len(refs))
	for i, r := range refs {
		out[i] = r.clone()
	}
	return out
}

// Violations evaluates every rule registered for signalID against src and
// returns the violations of the matching rules in registration order.
func (s *Snapshot) Violations(signalID string, src condition.Source) []escalation.Violation {
	out := []escalation.Violation{}
	for _, r := range s.bySignal[signalID] {
		if r.Matches(src) {
			out = append(out, r.Violation())
		}
	}
	return out
}

// Rule returns the rule registered under id.
func (s *Snapshot) Rule(id string) (Rule, bool) {
	r, ok := s.byID[id]
	if !ok {
		return Rule{}, false
	}
	return r.clone(), true
}

// Rules returns every rule in registration order.
func (s *Snapshot) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.clone()
	}
	return out
}

// Len returns the number of registered rules.
func (s *Snapshot) Len() int {
	return len(s.rules)
}

// SignalIDs returns the signal ids that have at least one rule, sorted.
func (s *Snapshot) SignalIDs() []string {
	return slices.Sorted(maps.Keys(s.bySignal))
}

// Signal returns the declared definition for signalID.
func (s *Snapshot) Signal(signalID string) (envelope.SignalDefinition, bool) {
	def, ok := s.signals[signalID]
	return def, ok
}

// Signals returns the declared signal definitions sorted by signal_id.
func (s *Snapshot) Signals() []envelope.SignalDefinition {
	out := make([]envelope.SignalDefinition, 0, len(s.signals))
	for _, id := range slices.Sorted(maps.Keys(s.signals)) {
		out = append(out, s.signals[id])
	}
	return out
}

// StableIdentifiers returns a copy of the declared stable identifiers.
func (s *Snapshot) StableIdentifiers() map[string]envelope.Kind {
	return maps.Clone(s.stable)
}

// Policy returns the escalation policy built from the pack thresholds.
func (s *Snapshot) Policy() *escalation.Policy {
	return s.policy
}

// Pack returns the pack metadata.
func (s *Snapshot) Pack() PackInfo {
	return s.pack
}

// Version returns the content digest of the snapshot. It changes whenever
// rules, signals, identifiers, thresholds or pack metadata change.
func (s *Snapshot) Version() string {
	return s.digest
}

// Source returns the path the snapshot was loaded from, if any.
func (s *Snapshot) Source() string {
	return s.source
}

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Revision returns the compatibility view of the snapshot.
func (s *Snapshot) Revision() compat.Revision {
	rev := compat.Revision{
		Version:           s.pack.Version,
		Digest:            s.digest,
		StableIdentifiers: maps.Clone(s.stable),
		Signals:           maps.Clone(s.signals),
		Rules:             make(map[string]compat.RuleInfo, len(s.rules)),
	}
	for _, r := range s.rules {
		rev.Rules[r.ID] = r.info()
	}
	return rev
}
