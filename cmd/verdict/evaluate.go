package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sta-hq/verdict/pkg/cli"
	"sta-hq/verdict/pkg/engine"
	"sta-hq/verdict/pkg/envelope"
	"sta-hq/verdict/pkg/escalation"
	"sta-hq/verdict/pkg/evidence/recorder"
	"sta-hq/verdict/pkg/evidence/storage"
	"sta-hq/verdict/pkg/registry"
	"sta-hq/verdict/pkg/report"
)

// progressChunk is the number of envelopes evaluated between progress updates.
const progressChunk = 256

var evaluateFlags struct {
	registry    string
	input       string
	out         string
	markdown    string
	title       string
	format      string
	record      bool
	runID       string
	workers     int
	conformance bool
	progress    bool
	failOn      string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a batch of envelopes",
	Long: `Evaluate a batch of envelopes against one registry snapshot.

Input is line-delimited JSON or a JSON array of envelopes. Records that
fail to decode or lack a stable identifier are reported as invalid and do
not stop the batch. Results keep the input order.

Examples:
  # Evaluate a file and print a summary
  verdict evaluate --registry rules/ --input envelopes.ndjson

  # Read stdin, write the JSON report and the Markdown digest
  cat envelopes.ndjson | verdict evaluate --registry rules/ --out report.json --markdown report.md

  # Record verdicts and fail when anything reaches board_review
  verdict evaluate --registry rules/ --input envelopes.ndjson --record --fail-on board_review`,
	RunE: runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.StringVarP(&evaluateFlags.registry, "registry", "r", "", "rule pack file or directory (default: registry settings from config)")
	f.StringVarP(&evaluateFlags.input, "input", "i", "-", "envelope file, - for stdin")
	f.StringVarP(&evaluateFlags.out, "out", "o", "", "write the JSON run report to this path")
	f.StringVar(&evaluateFlags.markdown, "markdown", "", "write the Markdown digest to this path")
	f.StringVar(&evaluateFlags.title, "title", "", "Markdown digest title")
	f.StringVarP(&evaluateFlags.format, "format", "f", "text", "stdout format (text, json, ndjson)")
	f.BoolVar(&evaluateFlags.record, "record", false, "record verdicts in the evidence ledger")
	f.StringVar(&evaluateFlags.runID, "run-id", "", "run id stored with recorded verdicts (default: random)")
	f.IntVarP(&evaluateFlags.workers, "workers", "w", 0, "concurrent evaluations (default: evaluation.workers)")
	f.BoolVar(&evaluateFlags.conformance, "conformance", false, "report signal definition mismatches")
	f.BoolVar(&evaluateFlags.progress, "progress", false, "show progress on stderr")
	f.StringVar(&evaluateFlags.failOn, "fail-on", "", "exit 3 when any envelope reaches this escalation level")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evaluateFlags.format)
	if err != nil {
		return err
	}
	failOn := escalation.LevelNone
	if evaluateFlags.failOn != "" {
		if failOn, err = escalation.ParseLevel(evaluateFlags.failOn); err != nil {
			return cli.NewConfigError("fail-on", err.Error())
		}
	}

	s, err := newSession(cmd, "evaluate")
	if err != nil {
		return err
	}
	defer s.close()
	ctx := commandContext(cmd)

	record := evaluateFlags.record || s.cfg.Evidence.Enabled
	if record && !storage.Durable(&s.cfg.Evidence) {
		if evaluateFlags.record {
			return cli.NewConfigError("evidence.backend", "--record needs the sqlite backend; the memory ledger is discarded when evaluate exits")
		}
		s.logger.Warn("evidence uses the memory backend; verdicts of this run are not kept")
		record = false
	}

	snap, err := s.loadSnapshot(ctx, evaluateFlags.registry)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	in, name, err := openInput(cmd, evaluateFlags.input)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	items, err := envelope.ReadAll(in)
	in.Close()
	if err != nil {
		return cli.NewCommandError("evaluate", fmt.Errorf("read %s: %w", name, err))
	}

	workers := s.cfg.Evaluation.Workers
	if evaluateFlags.workers > 0 {
		workers = evaluateFlags.workers
	}
	eng := engine.New(registry.NewStore(snap), engine.Options{
		Workers:          workers,
		CheckConformance: s.cfg.Evaluation.CheckConformance || evaluateFlags.conformance,
		Metrics:          s.tel.Metrics(),
		Logger:           s.logger,
	})

	var progress *cli.Progress
	if evaluateFlags.progress {
		progress = cli.NewProgress(cmd.ErrOrStderr())
	}
	results := evaluateItems(ctx, eng, items, progress)

	rep := report.Build(results, report.Meta{
		Input:    name,
		Snapshot: snap,
		Title:    firstNonEmpty(evaluateFlags.title, s.cfg.Report.Title),
	})
	jsonPath := firstNonEmpty(evaluateFlags.out, s.cfg.Report.JSONPath)
	mdPath := firstNonEmpty(evaluateFlags.markdown, s.cfg.Report.MarkdownPath)
	if err := rep.WriteFiles(jsonPath, mdPath); err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	if record {
		runID := firstNonEmpty(evaluateFlags.runID, uuid.NewString())
		if _, err := recordBatch(ctx, s, runID, snap, results); err != nil {
			return cli.NewCommandError("evaluate", err)
		}
	}

	if err := writeEvaluation(cmd.OutOrStdout(), format, rep); err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	if evaluateFlags.failOn != "" {
		if n := countAtLeast(rep, failOn); n > 0 {
			return &cli.ExitError{
				Code:   cli.ExitFindings,
				Reason: fmt.Sprintf("%d envelope(s) reached %s or above", n, failOn),
			}
		}
	}
	return nil
}

// evaluateItems evaluates items against one snapshot. With a progress
// reporter the batch is split into chunks so progress can be shown; item
// indexes still refer to the full input.
func evaluateItems(ctx context.Context, eng *engine.Engine, items []envelope.Item, progress *cli.Progress) []engine.BatchItem {
	if progress == nil {
		return eng.EvaluateItems(ctx, items)
	}

	progress.Start(len(items))
	out := make([]engine.BatchItem, 0, len(items))
	for start := 0; start < len(items); start += progressChunk {
		end := min(start+progressChunk, len(items))
		invalid := 0
		for _, item := range eng.EvaluateItems(ctx, items[start:end]) {
			if item.Err != nil {
				invalid++
			}
			item.Index += start
			out = append(out, item)
		}
		progress.Add(end-start, invalid)
	}
	progress.Finish()
	return out
}

func recordBatch(ctx context.Context, s *session, runID string, snap *registry.Snapshot, results []engine.BatchItem) (int, error) {
	store, err := storage.New(&s.cfg.Evidence)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	rec := recorder.New(store, recorder.Options{Metrics: s.tel.Metrics(), Logger: s.logger})
	return rec.RecordBatch(ctx, runID, snap, results)
}

func writeEvaluation(w io.Writer, format cli.OutputFormat, rep *report.Report) error {
	f, err := cli.NewFormatter(format)
	if err != nil {
		return err
	}
	switch format {
	case cli.FormatJSON:
		return f.FormatTo(w, rep)
	case cli.FormatNDJSON:
		return f.FormatTo(w, rep.Results)
	default:
		return f.FormatTo(w, evaluationSummary{rep})
	}
}

func countAtLeast(rep *report.Report, level escalation.Level) int {
	n := 0
	for _, e := range rep.Results {
		if e.Result != nil && e.Result.Escalation >= level {
			n++
		}
	}
	return n
}

// evaluationSummary renders a report as a table for the terminal.
type evaluationSummary struct {
	rep *report.Report
}

func (s evaluationSummary) WriteText(w io.Writer) error {
	r := s.rep
	if r.Registry.ID != "" {
		fmt.Fprintf(w, "Registry: %s@%s (version %s, %d rules)\n", r.Registry.ID, r.Registry.PackVersion, r.Registry.Version, r.Registry.Rules)
	}
	fmt.Fprintf(w, "Envelopes: %d  Violations: %d  Invalid: %d\n\n", r.EnvelopesCount, r.ViolationsCount, r.InvalidCount)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tENVELOPE\tSIGNAL\tSCORE\tESCALATION\tRULES")
	for _, e := range r.Results {
		if e.Result == nil {
			fmt.Fprintf(tw, "%d\t%s\t-\t-\tinvalid\t%s\n", e.Index+1, orDash(e.EnvelopeID), e.Error)
			continue
		}
		res := e.Result
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Index+1, res.EnvelopeID, res.SignalID,
			strconv.FormatFloat(res.StructuralRiskScore, 'f', -1, 64),
			res.Escalation, orDash(strings.Join(res.RuleIDs(), ",")))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
