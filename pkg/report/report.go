// Package report summarizes one evaluation run as a JSON document and a
// Markdown digest.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"sta-hq/verdict/pkg/engine"
	"sta-hq/verdict/pkg/escalation"
	"sta-hq/verdict/pkg/registry"
)

// DefaultTitle heads the Markdown digest when Meta.Title is empty.
const DefaultTitle = "Verdict Run Report"

// Meta describes the run being reported.
type Meta struct {
	// Input names the envelope source, for example a file path or "stdin".
	Input string

	// Snapshot is the registry the batch was evaluated against.
	Snapshot *registry.Snapshot

	// Title heads the Markdown digest.
	Title string

	// GeneratedAt defaults to the current time.
	GeneratedAt time.Time
}

// RegistryRef identifies the snapshot a report was produced with.
type RegistryRef struct {
	ID          string `json:"id"`
	PackVersion string `json:"pack_version"`
	Version     string `json:"version"`
	Rules       int    `json:"rules"`
}

// Entry is one batch item. Exactly one of Result and Error is set.
type Entry struct {
	Index      int            `json:"index"`
	EnvelopeID string         `json:"envelope_id,omitempty"`
	Result     *engine.Result `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Report is the JSON run report.
type Report struct {
	ReportID    string      `json:"report_id"`
	Title       string      `json:"title"`
	GeneratedAt time.Time   `json:"generated_at"`
	Input       string      `json:"input"`
	Registry    RegistryRef `json:"registry"`

	EnvelopesCount  int `json:"envelopes_count"`
	ViolationsCount int `json:"violations_count"`
	InvalidCount    int `json:"invalid_count"`

	// EscalationCounts always holds every level, zero counts included.
	EscalationCounts map[string]int `json:"escalation_counts"`

	Results []Entry `json:"results"`
}

// Build assembles a report from batch items in their original order.
func Build(items []engine.BatchItem, meta Meta) *Report {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now()
	}
	if meta.Title == "" {
		meta.Title = DefaultTitle
	}

	r := &Report{
		ReportID:         uuid.NewString(),
		Title:            meta.Title,
		GeneratedAt:      meta.GeneratedAt.UTC(),
		Input:            meta.Input,
		EnvelopesCount:   len(items),
		EscalationCounts: make(map[string]int, len(escalation.Levels())),
		Results:          make([]Entry, 0, len(items)),
	}
	if meta.Snapshot != nil {
		pack := meta.Snapshot.Pack()
		r.Registry = RegistryRef{
			ID:          pack.ID,
			PackVersion: pack.Version,
			Version:     meta.Snapshot.Version(),
			Rules:       meta.Snapshot.Len(),
		}
	}
	for _, l := range escalation.Levels() {
		r.EscalationCounts[l.String()] = 0
	}

	for _, item := range items {
		entry := Entry{Index: item.Index, EnvelopeID: item.Result.EnvelopeID}
		if item.Err != nil {
			entry.Error = item.Err.Error()
			r.InvalidCount++
		} else {
			res := item.Result
			entry.Result = &res
			r.ViolationsCount += len(res.Violations)
			r.EscalationCounts[res.Escalation.String()]++
		}
		r.Results = append(r.Results, entry)
	}
	return r
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteFiles writes the JSON report and the Markdown digest. An empty path
// skips that output. Parent directories are created as needed.
func (r *Report) WriteFiles(jsonPath, markdownPath string) error {
	if jsonPath != "" {
		if err := writeFile(jsonPath, r.WriteJSON); err != nil {
			return err
		}
	}
	if markdownPath != "" {
		if err := writeFile(markdownPath, r.WriteMarkdown); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close report %s: %w", path, cerr)
		}
	}()
	return write(f)
}
