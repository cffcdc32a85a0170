package registry

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"sta-hq/verdict/pkg/condition"
	"sta-hq/verdict/pkg/envelope"
	"sta-hq/verdict/pkg/escalation"
)

func testRule(id, signal string, level escalation.Level) Rule {
	return Rule{
		ID:                 id,
		SignalID:           signal,
		Condition:          condition.Simple("delta", condition.OperatorGreaterThan, envelope.Number(1000)),
		ViolationType:      "equation_break",
		EscalationLevelMin: level,
	}
}

func TestBuilder_Register(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr error
		field   string
	}{
		{"valid", testRule("R-1", "SIG", escalation.LevelAdvisory), nil, ""},
		{"nil condition", Rule{ID: "R-2", SignalID: "SIG", ViolationType: "v"}, nil, ""},
		{"missing rule_id", Rule{SignalID: "SIG", ViolationType: "v"}, ErrInvalidRule, "rule_id"},
		{"missing signal_id", Rule{ID: "R-3", ViolationType: "v"}, ErrInvalidRule, "signal_id"},
		{"missing violation_type", Rule{ID: "R-4", SignalID: "SIG"}, ErrInvalidRule, "violation_type"},
		{"invalid level", Rule{ID: "R-5", SignalID: "SIG", ViolationType: "v", EscalationLevelMin: escalation.Level(7)}, ErrInvalidRule, "escalation_level_min"},
		{"invalid condition", Rule{
			ID: "R-6", SignalID: "SIG", ViolationType: "v",
			Condition: condition.Simple("delta", condition.OperatorGreaterThan, envelope.String("big")),
		}, ErrInvalidRule, "condition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			err := b.Register(tt.rule)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Register() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
			}
			var ire *InvalidRuleError
			if !errors.As(err, &ire) {
				t.Fatalf("Register() error type = %T, want *InvalidRuleError", err)
			}
			if ire.Field != tt.field {
				t.Errorf("InvalidRuleError.Field = %q, want %q", ire.Field, tt.field)
			}
		})
	}
}

func TestBuilder_DuplicateRuleID(t *testing.T) {
	b := NewBuilder()
	if err := b.Register(testRule("R-1", "SIG-A", escalation.LevelNone)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := b.Register(testRule("R-1", "SIG-B", escalation.LevelNone))
	if !errors.Is(err, ErrDuplicateRuleID) {
		t.Fatalf("Register() error = %v, want ErrDuplicateRuleID", err)
	}
	var dup *DuplicateRuleIDError
	if !errors.As(err, &dup) || dup.RuleID != "R-1" {
		t.Errorf("DuplicateRuleIDError = %+v", dup)
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
}

func TestBuilder_RegisterSignal(t *testing.T) {
	b := NewBuilder()
	def := envelope.SignalDefinition{SignalID: "SIG", SignalCategory: "financial", SignalType: "constraint"}
	if err := b.RegisterSignal(def); err != nil {
		t.Fatalf("RegisterSignal() error = %v", err)
	}
	if err := b.RegisterSignal(def); err == nil {
		t.Error("RegisterSignal() duplicate should fail")
	}
	if err := b.RegisterSignal(envelope.SignalDefinition{}); err == nil {
		t.Error("RegisterSignal() without signal_id should fail")
	}

	snap := b.Build()
	got, ok := snap.Signal("SIG")
	if !ok || got.SignalCategory != "financial" {
		t.Errorf("Signal() = %+v, %v", got, ok)
	}
}

func TestSnapshot_RulesFor(t *testing.T) {
	b := NewBuilder()
	for _, r := range []Rule{
		testRule("R-3", "SIG-A", escalation.LevelNone),
		testRule("R-1", "SIG-B", escalation.LevelNone),
		testRule("R-2", "SIG-A", escalation.LevelCritical),
	} {
		if err := b.Register(r); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	snap := b.Build()

	ids := func(rules []Rule) []string {
		out := make([]string, len(rules))
		for i, r := range rules {
			out[i] = r.ID
		}
		return out
	}

	if got, want := ids(snap.RulesFor("SIG-A")), []string{"R-3", "R-2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("RulesFor(SIG-A) = %v, want %v", got, want)
	}
	if got := snap.RulesFor("UNKNOWN"); len(got) != 0 {
		t.Errorf("RulesFor(UNKNOWN) = %v, want empty", got)
	}

	// Repeated calls return equal sequences and mutation does not leak.
	first := snap.RulesFor("SIG-A")
	first[0].ID = "mutated"
	second := snap.RulesFor("SIG-A")
	if second[0].ID != "R-3" {
		t.Errorf("RulesFor() returned shared storage: %q", second[0].ID)
	}
	if !reflect.DeepEqual(ids(second), ids(snap.RulesFor("SIG-A"))) {
		t.Error("RulesFor() not deterministic")
	}

	if got := snap.SignalIDs(); !reflect.DeepEqual(got, []string{"SIG-A", "SIG-B"}) {
		t.Errorf("SignalIDs() = %v", got)
	}
	if r, ok := snap.Rule("R-2"); !ok || r.EscalationLevelMin != escalation.LevelCritical {
		t.Errorf("Rule(R-2) = %+v, %v", r, ok)
	}
}

func TestSnapshot_VersionTracksContent(t *testing.T) {
	build := func(level escalation.Level, description string) *Snapshot {
		b := NewBuilder()
		b.SetPack(PackInfo{ID: "p", Version: "1.0.0"})
		r := testRule("R-1", "SIG", level)
		r.Description = description
		if err := b.Register(r); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		return b.Build()
	}

	a := build(escalation.LevelAdvisory, "one")
	if len(a.Version()) != 16 {
		t.Errorf("Version() = %q, want 16 hex chars", a.Version())
	}
	if b := build(escalation.LevelAdvisory, "two"); b.Version() != a.Version() {
		t.Error("description change altered the version")
	}
	if c := build(escalation.LevelCritical, "one"); c.Version() == a.Version() {
		t.Error("floor change did not alter the version")
	}
}

func TestSnapshot_Revision(t *testing.T) {
	b := NewBuilder()
	b.SetPack(PackInfo{ID: "p", Version: "1.2.0"})
	r := testRule("R-1", "SIG", escalation.LevelBoardReview)
	r.Deprecated = true
	if err := b.Register(r); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	rev := b.Build().Revision()

	if rev.Version != "1.2.0" {
		t.Errorf("Revision().Version = %q", rev.Version)
	}
	if len(rev.StableIdentifiers) != 5 {
		t.Errorf("Revision().StableIdentifiers = %v, want the 5 defaults", rev.StableIdentifiers)
	}
	info := rev.Rules["R-1"]
	if !info.Deprecated || info.EscalationLevelMin != escalation.LevelBoardReview {
		t.Errorf("Revision().Rules[R-1] = %+v", info)
	}
}

func TestEmpty(t *testing.T) {
	snap := Empty()
	if snap.Len() != 0 {
		t.Errorf("Len() = %d, want 0", snap.Len())
	}
	if got := snap.Policy().Decide(0.99, nil); got != escalation.LevelNone {
		t.Errorf("empty policy Decide() = %v, want none", got)
	}
}

func TestStore_Swap(t *testing.T) {
	store := NewStore(nil)
	if store.Current() == nil {
		t.Fatal("Current() = nil")
	}

	b := NewBuilder()
	if err := b.Register(testRule("R-1", "SIG", escalation.LevelNone)); err != nil {
		t.Fatal(err)
	}
	next := b.Build()

	prev := store.Swap(next)
	if prev.Len() != 0 {
		t.Errorf("Swap() previous Len = %d, want 0", prev.Len())
	}
	if store.Current() != next {
		t.Error("Current() did not return swapped snapshot")
	}
	if store.Swap(nil) != next || store.Current() != next {
		t.Error("Swap(nil) should be ignored")
	}
}

func TestStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	snapshots := make([]*Snapshot, 2)
	for i := range snapshots {
		b := NewBuilder()
		for j := 0; j <= i; j++ {
			if err := b.Register(testRule(string(rune('A'+j)), "SIG", escalation.LevelNone)); err != nil {
				t.Fatal(err)
			}
		}
		snapshots[i] = b.Build()
	}

	store := NewStore(snapshots[0])
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := store.Current()
				if n := len(snap.RulesFor("SIG")); n != snap.Len() {
					t.Errorf("RulesFor() len %d, snapshot Len %d", n, snap.Len())
					return
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		store.Swap(snapshots[i%2])
	}
	close(stop)
	wg.Wait()
}

func TestSnapshot_RegisteredConditionsCannotBeChanged(t *testing.T) {
	original := testRule("R-1", "SIG", escalation.LevelAdvisory)
	b := NewBuilder()
	if err := b.Register(original); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	snap := b.Build()
	version := snap.Version()

	small := envelope.New(envelope.Identifiers{SignalID: "SIG"}, 0, map[string]envelope.Value{"delta": envelope.Number(5)})
	if got := snap.Violations("SIG", small); len(got) != 0 {
		t.Fatalf("Violations() before change = %v, want none", got)
	}

	// Change the caller's rule and every copy the snapshot hands out.
	original.Condition.Operator = condition.OperatorLessThan
	snap.RulesFor("SIG")[0].Condition.Operator = condition.OperatorLessThan
	snap.Rules()[0].Condition.Value = envelope.Number(1e9)
	if r, ok := snap.Rule("R-1"); ok {
		r.Condition.Field = "other"
	}

	if got := snap.Violations("SIG", small); len(got) != 0 {
		t.Errorf("Violations() after change = %v, want none", got)
	}
	if got := snap.RulesFor("SIG")[0].Condition.String(); got != "delta > 1000" {
		t.Errorf("registered condition = %q, want delta > 1000", got)
	}
	if snap.Version() != version {
		t.Errorf("Version() changed from %s to %s", version, snap.Version())
	}
}

func TestBuilder_RegisterAfterBuild(t *testing.T) {
	b := NewBuilder()
	if err := b.Register(testRule("R-1", "SIG", escalation.LevelNone)); err != nil {
		t.Fatal(err)
	}
	snap := b.Build()

	if err := b.Register(testRule("R-2", "SIG", escalation.LevelNone)); !errors.Is(err, ErrBuilderUsed) {
		t.Errorf("Register() after Build error = %v, want ErrBuilderUsed", err)
	}
	if err := b.RegisterSignal(envelope.SignalDefinition{SignalID: "SIG"}); !errors.Is(err, ErrBuilderUsed) {
		t.Errorf("RegisterSignal() after Build error = %v, want ErrBuilderUsed", err)
	}
	if snap.Len() != 1 || len(snap.RulesFor("SIG")) != 1 {
		t.Errorf("snapshot has %d rules after a rejected Register, want 1", snap.Len())
	}
}
