package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sta-hq/verdict/pkg/engine"
	"sta-hq/verdict/pkg/escalation"
	"sta-hq/verdict/pkg/registry"
)

func fixtureItems() []engine.BatchItem {
	return []engine.BatchItem{
		{Index: 0, Result: engine.Result{
			EnvelopeID: "env-1", SignalID: "fin.liquidity", StructuralRiskScore: 0.3,
			Violations: []escalation.Violation{
				{RuleID: "LIQ-001", ViolationType: "threshold", EscalationLevelMin: escalation.LevelBoardReview},
				{RuleID: "LIQ-002", ViolationType: "presence", EscalationLevelMin: escalation.LevelAdvisory},
			},
			Escalation: escalation.LevelBoardReview, ScoreLevel: escalation.LevelAdvisory, FloorLevel: escalation.LevelBoardReview,
		}},
		{Index: 1, Result: engine.Result{EnvelopeID: "env-2"}, Err: errors.New("invalid envelope env-2: missing structural_risk_score")},
		{Index: 2, Result: engine.Result{
			EnvelopeID: "env-3", SignalID: "fin.liquidity", StructuralRiskScore: 0.1,
			Violations: []escalation.Violation{},
		}},
	}
}

func fixtureSnapshot() *registry.Snapshot {
	b := registry.NewBuilder()
	b.SetPack(registry.PackInfo{ID: "fin-core", Version: "1.2.0"})
	return b.Build()
}

func TestBuild(t *testing.T) {
	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	r := Build(fixtureItems(), Meta{Input: "envelopes.ndjson", Snapshot: fixtureSnapshot(), GeneratedAt: at})

	if r.ReportID == "" {
		t.Error("report id is empty")
	}
	if r.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", r.Title, DefaultTitle)
	}
	if got, want := r.Registry.ID, "fin-core"; got != want {
		t.Errorf("Registry.ID = %q, want %q", got, want)
	}
	if r.Registry.Version == "" {
		t.Error("registry version is empty")
	}
	if r.EnvelopesCount != 3 || r.ViolationsCount != 2 || r.InvalidCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", r.EnvelopesCount, r.ViolationsCount, r.InvalidCount)
	}

	wantCounts := map[string]int{"none": 1, "advisory": 0, "board_review": 1, "critical": 0}
	if diff := cmp.Diff(wantCounts, r.EscalationCounts); diff != "" {
		t.Errorf("EscalationCounts mismatch (-want +got):\n%s", diff)
	}

	if len(r.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3", len(r.Results))
	}
	if r.Results[1].Result != nil || r.Results[1].EnvelopeID != "env-2" || r.Results[1].Error == "" {
		t.Errorf("invalid entry = %+v", r.Results[1])
	}
	if r.Results[2].Result == nil || r.Results[2].Index != 2 {
		t.Errorf("third entry = %+v", r.Results[2])
	}
}

func TestWriteJSON(t *testing.T) {
	r := Build(fixtureItems(), Meta{Input: "stdin", Snapshot: fixtureSnapshot()})

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"report_id", "input", "registry", "envelopes_count", "violations_count", "invalid_count", "escalation_counts", "results"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}

	results := doc["results"].([]any)
	first := results[0].(map[string]any)["result"].(map[string]any)
	if got := first["escalation"]; got != "board_review" {
		t.Errorf("escalation = %v, want board_review", got)
	}
}

func TestWriteMarkdown(t *testing.T) {
	r := Build(fixtureItems(), Meta{Input: "envelopes.ndjson", Snapshot: fixtureSnapshot(), Title: "Q1 Run"})

	var buf bytes.Buffer
	if err := r.WriteMarkdown(&buf); err != nil {
		t.Fatalf("WriteMarkdown() error = %v", err)
	}
	md := buf.String()

	for _, want := range []string{
		"# Q1 Run\n",
		"- Input: `envelopes.ndjson`",
		"`fin-core@1.2.0`",
		"- Envelopes: **3**",
		"| board_review | 1 |",
		"### 1. env-1 — board_review",
		"  - `LIQ-001` threshold (floor board_review)",
		"### 2. env-2 — invalid",
		"### 3. env-3 — none",
		"No violations triggered.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestWriteMarkdownEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Build(nil, Meta{Input: "stdin"}).WriteMarkdown(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No envelopes evaluated.") {
		t.Errorf("empty report markdown = %q", buf.String())
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out", "report.json")
	mdPath := filepath.Join(dir, "out", "report.md")

	if err := Build(fixtureItems(), Meta{Input: "x"}).WriteFiles(jsonPath, mdPath); err != nil {
		t.Fatalf("WriteFiles() error = %v", err)
	}
	for _, p := range []string{jsonPath, mdPath} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("%s not written: %v", p, err)
		}
	}

	if err := Build(nil, Meta{}).WriteFiles("", ""); err != nil {
		t.Errorf("WriteFiles with no paths error = %v", err)
	}
}
