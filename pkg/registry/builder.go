package registry

import (
	"crypto/sha256"
	"fmt"
	"maps"
	"slices"
	"time"

	"sta-hq/verdict/pkg/envelope"
	"sta-hq/verdict/pkg/escalation"
)

// DefaultStableIdentifiers returns the stable identifiers assumed when a
// pack does not declare its own: the five envelope identifiers, all strings.
func DefaultStableIdentifiers() map[string]envelope.Kind {
	ids := make(map[string]envelope.Kind)
	for _, name := range envelope.StableIdentifiers() {
		ids[name] = envelope.KindString
	}
	return ids
}

// Builder accumulates rules and pack metadata and produces an immutable
// Snapshot. A Builder is not safe for concurrent use.
type Builder struct {
	pack     PackInfo
	rules    []*Rule
	byID     map[string]*Rule
	bySignal map[string][]*Rule
	signals  map[string]envelope.SignalDefinition
	stable   map[string]envelope.Kind
	table    *escalation.Table
	source   string
	built    bool
}

// NewBuilder creates an empty builder with the default stable identifiers
// and an empty threshold table.
func NewBuilder() *Builder {
	return &Builder{
		byID:     make(map[string]*Rule),
		bySignal: make(map[string][]*Rule),
		signals:  make(map[string]envelope.SignalDefinition),
		stable:   DefaultStableIdentifiers(),
		table:    escalation.EmptyTable(),
	}
}

// SetPack sets the pack metadata.
func (b *Builder) SetPack(pack PackInfo) {
	b.pack = pack
}

// SetSource records where the rules were loaded from.
func (b *Builder) SetSource(source string) {
	b.source = source
}

// SetStableIdentifiers replaces the declared stable identifiers.
func (b *Builder) SetStableIdentifiers(ids map[string]envelope.Kind) {
	b.stable = maps.Clone(ids)
}

// SetThresholds sets the threshold table. A nil table is treated as empty.
func (b *Builder) SetThresholds(table *escalation.Table) {
	if table == nil {
		table = escalation.EmptyTable()
	}
	b.table = table
}

// RegisterSignal declares a signal definition. Declaring the same
// signal_id twice is an error.
func (b *Builder) RegisterSignal(def envelope.SignalDefinition) error {
	if b.built {
		return ErrBuilderUsed
	}
	if def.SignalID == "" {
		return fmt.Errorf("signal definition without signal_id")
	}
	if _, exists := b.signals[def.SignalID]; exists {
		return fmt.Errorf("duplicate signal definition %q", def.SignalID)
	}
	def.RequiredFields = maps.Clone(def.RequiredFields)
	def.OptionalFields = maps.Clone(def.OptionalFields)
	b.signals[def.SignalID] = def
	return nil
}

// Register adds rule to the builder. It returns *DuplicateRuleIDError if
// the rule_id is already registered and *InvalidRuleError if the rule is
// malformed. The builder keeps its own deep copy of rule. Registering after
// Build returns ErrBuilderUsed.
func (b *Builder) Register(rule Rule) error {
	if b.built {
		return ErrBuilderUsed
	}
	if err := rule.validate(); err != nil {
		return err
	}
	if _, exists := b.byID[rule.ID]; exists {
		return &DuplicateRuleIDError{RuleID: rule.ID}
	}

	c := rule.clone()
	r := &c
	b.rules = append(b.rules, r)
	b.byID[r.ID] = r
	b.bySignal[r.SignalID] = append(b.bySignal[r.SignalID], r)
	return nil
}

// Len returns the number of rules registered so far.
func (b *Builder) Len() int {
	return len(b.rules)
}

// Build returns the snapshot. The snapshot holds its own copies of the
// builder's collections; afterwards Register and RegisterSignal fail with
// ErrBuilderUsed.
func (b *Builder) Build() *Snapshot {
	b.built = true

	bySignal := make(map[string][]*Rule, len(b.bySignal))
	for id, rules := range b.bySignal {
		bySignal[id] = slices.Clone(rules)
	}
	s := &Snapshot{
		pack:     b.pack,
		rules:    slices.Clone(b.rules),
		byID:     maps.Clone(b.byID),
		bySignal: bySignal,
		signals:  maps.Clone(b.signals),
		stable:   maps.Clone(b.stable),
		policy:   escalation.NewPolicy(b.table),
		source:   b.source,
		loadedAt: time.Now(),
	}
	s.digest = b.digest()
	return s
}

// digest hashes the semantic content of the pack. Rule descriptions and
// file layout do not contribute.
func (b *Builder) digest() string {
	h := sha256.New()

	fmt.Fprintf(h, "pack:%s@%s\n", b.pack.ID, b.pack.Version)

	for _, name := range slices.Sorted(maps.Keys(b.stable)) {
		fmt.Fprintf(h, "id:%s:%s\n", name, b.stable[name])
	}

	for _, id := range slices.Sorted(maps.Keys(b.signals)) {
		def := b.signals[id]
		fmt.Fprintf(h, "signal:%s:%s:%s\n", id, def.SignalCategory, def.SignalType)
		for _, f := range slices.Sorted(maps.Keys(def.RequiredFields)) {
			fmt.Fprintf(h, "  required:%s:%s\n", f, def.RequiredFields[f])
		}
		for _, f := range slices.Sorted(maps.Keys(def.OptionalFields)) {
			fmt.Fprintf(h, "  optional:%s:%s\n", f, def.OptionalFields[f])
		}
	}

	for _, bp := range b.table.Breakpoints() {
		fmt.Fprintf(h, "threshold:%g:%d:%s\n", bp.MinScore, bp.MinCount, bp.Level)
	}

	for _, r := range b.rules {
		fmt.Fprintf(h, "rule:%s:%s:%s:%s:%t:%s\n",
			r.ID, r.SignalID, r.ViolationType, r.EscalationLevelMin, r.Deprecated, r.Condition)
	}

	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
