package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"sta-hq/verdict/pkg/condition"
	"sta-hq/verdict/pkg/envelope"
	"sta-hq/verdict/pkg/escalation"
	"sta-hq/verdict/pkg/registry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testSnapshot(t testing.TB) *registry.Snapshot {
	t.Helper()

	b := registry.NewBuilder()
	b.SetPack(registry.PackInfo{ID: "sta-test", Version: "1.0.0"})

	table, err := escalation.NewTable([]escalation.Breakpoint{
		{MinScore: 0.9, MinCount: 0, Level: escalation.LevelCritical},
		{MinScore: 0.6, MinCount: 2, Level: escalation.LevelBoardReview},
		{MinScore: 0.4, MinCount: 0, Level: escalation.LevelAdvisory},
	})
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	b.SetThresholds(table)

	err = b.RegisterSignal(envelope.SignalDefinition{
		SignalID:       "exposure",
		SignalCategory: "financial",
		SignalType:     "ratio",
		RequiredFields: map[string]envelope.Kind{"delta": envelope.KindNumber},
		OptionalFields: map[string]envelope.Kind{"desk": envelope.KindString},
	})
	if err != nil {
		t.Fatalf("RegisterSignal() error = %v", err)
	}

	rules := []registry.Rule{
		{
			ID:                 "R-EXP-001",
			SignalID:           "exposure",
			Condition:          condition.Simple("delta", condition.OperatorGreaterThan, envelope.Number(1000)),
			ViolationType:      "equation_break",
			EscalationLevelMin: escalation.LevelBoardReview,
		},
		{
			ID:                 "R-EXP-002",
			SignalID:           "exposure",
			Condition:          condition.Simple("desk", condition.OperatorEqual, envelope.String("rates")),
			ViolationType:      "concentration",
			EscalationLevelMin: escalation.LevelAdvisory,
		},
		{
			ID:                 "R-LIQ-001",
			SignalID:           "liquidity",
			Condition:          condition.Simple("coverage", condition.OperatorLessThan, envelope.Number(1)),
			ViolationType:      "coverage_gap",
			EscalationLevelMin: escalation.LevelNone,
		},
	}
	for _, r := range rules {
		if err := b.Register(r); err != nil {
			t.Fatalf("Register(%s) error = %v", r.ID, err)
		}
	}
	return b.Build()
}

func testEnvelope(id, signal string, score float64, fields map[string]envelope.Value) *envelope.Envelope {
	return envelope.New(envelope.Identifiers{
		STAVersion:     "0.1",
		EnvelopeID:     id,
		SignalID:       signal,
		SignalCategory: "financial",
		SignalType:     "ratio",
	}, score, fields)
}

func TestEngine_Evaluate(t *testing.T) {
	snap := testSnapshot(t)
	eng := New(registry.NewStore(snap), Options{})

	boardReview := escalation.Violation{RuleID: "R-EXP-001", ViolationType: "equation_break", EscalationLevelMin: escalation.LevelBoardReview}
	advisory := escalation.Violation{RuleID: "R-EXP-002", ViolationType: "concentration", EscalationLevelMin: escalation.LevelAdvisory}

	tests := []struct {
		name string
		env  *envelope.Envelope
		want Result
	}{
		{
			name: "no match, low score",
			env:  testEnvelope("E1", "exposure", 0.1, map[string]envelope.Value{"delta": envelope.Number(5)}),
			want: Result{
				Violations: []escalation.Violation{},
				Escalation: escalation.LevelNone,
			},
		},
		{
			name: "board review floor over advisory score",
			env:  testEnvelope("E2", "exposure", 0.45, map[string]envelope.Value{"delta": envelope.Number(5000)}),
			want: Result{
				Violations: []escalation.Violation{boardReview},
				Escalation: escalation.LevelBoardReview,
				ScoreLevel: escalation.LevelAdvisory,
				FloorLevel: escalation.LevelBoardReview,
			},
		},
		{
			name: "score dominates floor",
			env:  testEnvelope("E3", "exposure", 0.95, map[string]envelope.Value{"desk": envelope.String("rates")}),
			want: Result{
				Violations: []escalation.Violation{advisory},
				Escalation: escalation.LevelCritical,
				ScoreLevel: escalation.LevelCritical,
				FloorLevel: escalation.LevelAdvisory,
			},
		},
		{
			name: "violations keep registration order and count feeds the table",
			env: testEnvelope("E4", "exposure", 0.65, map[string]envelope.Value{
				"desk":  envelope.String("rates"),
				"delta": envelope.Number(2000),
			}),
			want: Result{
				Violations: []escalation.Violation{boardReview, advisory},
				Escalation: escalation.LevelBoardReview,
				ScoreLevel: escalation.LevelBoardReview,
				FloorLevel: escalation.LevelBoardReview,
			},
		},
		{
			name: "missing field is a non-match",
			env:  testEnvelope("E5", "exposure", 0.0, nil),
			want: Result{
				Violations: []escalation.Violation{},
				Escalation: escalation.LevelNone,
			},
		},
		{
			name: "unknown signal yields score level only",
			env:  testEnvelope("E6", "unregistered", 0.5, map[string]envelope.Value{"delta": envelope.Number(9999)}),
			want: Result{
				Violations: []escalation.Violation{},
				Escalation: escalation.LevelAdvisory,
				ScoreLevel: escalation.LevelAdvisory,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eng.Evaluate(context.Background(), tt.env)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}

			want := tt.want
			want.EnvelopeID = tt.env.ID()
			want.SignalID = tt.env.SignalID()
			want.StructuralRiskScore = tt.env.StructuralRiskScore()
			want.RegistryVersion = snap.Version()

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEngine_Evaluate_InvalidEnvelope(t *testing.T) {
	rec := &recordingMetrics{}
	eng := New(registry.NewStore(testSnapshot(t)), Options{Metrics: rec})

	env := envelope.New(envelope.Identifiers{EnvelopeID: "E-bad", SignalID: "exposure"}, 0.5, nil)
	res, err := eng.Evaluate(context.Background(), env)

	if !errors.Is(err, envelope.ErrInvalidEnvelope) {
		t.Fatalf("Evaluate() error = %v, want ErrInvalidEnvelope", err)
	}
	var invalid *envelope.InvalidEnvelopeError
	if !errors.As(err, &invalid) || len(invalid.Missing) == 0 {
		t.Errorf("InvalidEnvelopeError = %+v, want missing identifiers", invalid)
	}
	if res.EnvelopeID != "E-bad" {
		t.Errorf("Result.EnvelopeID = %q, want E-bad", res.EnvelopeID)
	}
	if res.Violations != nil {
		t.Errorf("Result.Violations = %v, want nil for an invalid envelope", res.Violations)
	}
	if rec.invalid != 1 || rec.evaluations != 0 {
		t.Errorf("metrics = %+v, want 1 invalid and 0 evaluations", rec)
	}

	if _, err := eng.Evaluate(context.Background(), nil); !errors.Is(err, envelope.ErrInvalidEnvelope) {
		t.Errorf("Evaluate(nil) error = %v, want ErrInvalidEnvelope", err)
	}
}

func TestEngine_Evaluate_ReferentiallyTransparent(t *testing.T) {
	eng := New(registry.NewStore(testSnapshot(t)), Options{})
	env := testEnvelope("E1", "exposure", 0.7, map[string]envelope.Value{
		"delta": envelope.Number(1500),
		"desk":  envelope.String("rates"),
	})

	first, err := eng.Evaluate(context.Background(), env)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		got, err := eng.Evaluate(context.Background(), env)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if diff := cmp.Diff(first, got); diff != "" {
			t.Fatalf("call %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestEngine_Conformance(t *testing.T) {
	eng := New(registry.NewStore(testSnapshot(t)), Options{CheckConformance: true})

	env := testEnvelope("E1", "exposure", 0.1, map[string]envelope.Value{"desk": envelope.Number(3)})
	got, err := eng.Evaluate(context.Background(), env)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	want := []envelope.Nonconformance{
		{Field: "delta", Problem: "required field missing"},
		{Field: "desk", Problem: "expected string, got number"},
	}
	if diff := cmp.Diff(want, got.Nonconformances); diff != "" {
		t.Errorf("Nonconformances mismatch (-want +got):\n%s", diff)
	}
	if got.Escalation != escalation.LevelNone {
		t.Errorf("Escalation = %v, conformance must not change the verdict", got.Escalation)
	}

	// Without the option nothing is reported.
	plain := New(registry.NewStore(testSnapshot(t)), Options{})
	got, _ = plain.Evaluate(context.Background(), env)
	if got.Nonconformances != nil {
		t.Errorf("Nonconformances = %v without CheckConformance", got.Nonconformances)
	}
}

func TestEngine_EvaluateAll_OrderAndPartialFailure(t *testing.T) {
	eng := New(registry.NewStore(testSnapshot(t)), Options{Workers: 3})

	envs := make([]*envelope.Envelope, 20)
	for i := range envs {
		envs[i] = testEnvelope(fmt.Sprintf("E%02d", i), "exposure", float64(i)/20, map[string]envelope.Value{
			"delta": envelope.Number(float64(i * 100)),
		})
	}
	envs[7] = envelope.New(envelope.Identifiers{EnvelopeID: "E07"}, 0, nil)

	items := eng.EvaluateAll(context.Background(), envs)
	if len(items) != len(envs) {
		t.Fatalf("EvaluateAll() returned %d items, want %d", len(items), len(envs))
	}

	for i, item := range items {
		if item.Index != i {
			t.Errorf("items[%d].Index = %d", i, item.Index)
		}
		if i == 7 {
			if !errors.Is(item.Err, envelope.ErrInvalidEnvelope) {
				t.Errorf("items[7].Err = %v, want ErrInvalidEnvelope", item.Err)
			}
			continue
		}
		if item.Err != nil {
			t.Errorf("items[%d].Err = %v", i, item.Err)
			continue
		}
		if item.Result.EnvelopeID != envs[i].ID() {
			t.Errorf("items[%d].EnvelopeID = %q, want %q", i, item.Result.EnvelopeID, envs[i].ID())
		}
	}
}

func TestEngine_EvaluateItems_DecodeErrors(t *testing.T) {
	eng := New(registry.NewStore(testSnapshot(t)), Options{})
	decodeErr := &envelope.DecodeError{Line: 2, Err: errors.New("bad json")}

	items := eng.EvaluateItems(context.Background(), []envelope.Item{
		{Envelope: testEnvelope("E1", "exposure", 0, nil)},
		{Err: decodeErr},
	})

	if items[0].Err != nil {
		t.Errorf("items[0].Err = %v", items[0].Err)
	}
	if !errors.Is(items[1].Err, decodeErr) {
		t.Errorf("items[1].Err = %v, want the decode error", items[1].Err)
	}
}

func TestEngine_EvaluateAll_Cancelled(t *testing.T) {
	eng := New(registry.NewStore(testSnapshot(t)), Options{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := eng.EvaluateAll(ctx, []*envelope.Envelope{
		testEnvelope("E1", "exposure", 0, nil),
		testEnvelope("E2", "exposure", 0, nil),
	})
	for i, item := range items {
		if !errors.Is(item.Err, context.Canceled) {
			t.Errorf("items[%d].Err = %v, want context.Canceled", i, item.Err)
		}
	}
}

// The whole batch sees the snapshot captured at its start, even if the
// store is swapped while it runs.
func TestEngine_EvaluateAll_SingleSnapshot(t *testing.T) {
	store := registry.NewStore(testSnapshot(t))
	before := store.Current().Version()

	blocking := &blockingMetrics{release: make(chan struct{})}
	eng := New(store, Options{Workers: 1, Metrics: blocking})

	envs := []*envelope.Envelope{
		testEnvelope("E1", "exposure", 0, nil),
		testEnvelope("E2", "exposure", 0, nil),
	}

	done := make(chan []BatchItem)
	go func() { done <- eng.EvaluateAll(context.Background(), envs) }()

	blocking.waitStarted()
	b := registry.NewBuilder()
	b.SetPack(registry.PackInfo{ID: "other", Version: "2.0.0"})
	store.Swap(b.Build())
	close(blocking.release)

	items := <-done
	for i, item := range items {
		if item.Result.RegistryVersion != before {
			t.Errorf("items[%d].RegistryVersion = %q, want %q", i, item.Result.RegistryVersion, before)
		}
	}
}

func TestEngine_ConcurrentEqualsSequential(t *testing.T) {
	eng := New(registry.NewStore(testSnapshot(t)), Options{Workers: 8})

	envs := make([]*envelope.Envelope, 200)
	for i := range envs {
		fields := map[string]envelope.Value{"delta": envelope.Number(float64(i * 13 % 2000))}
		if i%3 == 0 {
			fields["desk"] = envelope.String("rates")
		}
		envs[i] = testEnvelope(fmt.Sprintf("E%03d", i), "exposure", float64(i%100)/100, fields)
	}

	sequential := make([]Result, len(envs))
	for i, env := range envs {
		res, err := eng.Evaluate(context.Background(), env)
		if err != nil {
			t.Fatalf("Evaluate(%d) error = %v", i, err)
		}
		sequential[i] = res
	}

	// Batch path
	for i, item := range eng.EvaluateAll(context.Background(), envs) {
		if diff := cmp.Diff(sequential[i], item.Result); diff != "" {
			t.Errorf("batch item %d differs (-sequential +batch):\n%s", i, diff)
		}
	}

	// Free-running goroutines on one snapshot
	concurrent := make([]Result, len(envs))
	var wg sync.WaitGroup
	for i, env := range envs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			concurrent[i], _ = eng.Evaluate(context.Background(), env)
		}()
	}
	wg.Wait()

	if diff := cmp.Diff(sequential, concurrent); diff != "" {
		t.Errorf("concurrent results differ (-sequential +concurrent):\n%s", diff)
	}
}

func TestEngine_Metrics(t *testing.T) {
	rec := &recordingMetrics{}
	eng := New(registry.NewStore(testSnapshot(t)), Options{Metrics: rec})

	env := testEnvelope("E1", "exposure", 0.45, map[string]envelope.Value{"delta": envelope.Number(5000)})
	if _, err := eng.Evaluate(context.Background(), env); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if rec.evaluations != 1 {
		t.Fatalf("evaluations = %d, want 1", rec.evaluations)
	}
	if rec.lastEscalation != "board_review" {
		t.Errorf("escalation label = %q, want board_review", rec.lastEscalation)
	}
	if diff := cmp.Diff([]string{"R-EXP-001"}, rec.lastRules); diff != "" {
		t.Errorf("rule ids mismatch (-want +got):\n%s", diff)
	}
}

type recordingMetrics struct {
	mu             sync.Mutex
	evaluations    int
	invalid        int
	lastEscalation string
	lastRules      []string
}

func (r *recordingMetrics) RecordEvaluation(signalID, escalation string, _ time.Duration, ruleIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluations++
	r.lastEscalation = escalation
	r.lastRules = ruleIDs
}

func (r *recordingMetrics) RecordInvalidEnvelope() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalid++
}

// blockingMetrics parks the first evaluation until release is closed.
type blockingMetrics struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
}

func (b *blockingMetrics) init() {
	b.mu.Lock()
	if b.started == nil {
		b.started = make(chan struct{})
	}
	b.mu.Unlock()
}

func (b *blockingMetrics) waitStarted() {
	b.init()
	<-b.started
}

func (b *blockingMetrics) RecordEvaluation(string, string, time.Duration, []string) {
	b.init()
	b.once.Do(func() {
		close(b.started)
		<-b.release
	})
}

func (b *blockingMetrics) RecordInvalidEnvelope() {}
