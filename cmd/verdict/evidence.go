package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sta-hq/verdict/pkg/cli"
	"sta-hq/verdict/pkg/evidence"
	"sta-hq/verdict/pkg/evidence/export"
	"sta-hq/verdict/pkg/evidence/retention"
	"sta-hq/verdict/pkg/evidence/storage"
)

var evidenceFlags struct {
	timeRange       string
	since           time.Duration
	runID           string
	envelopeID      string
	signalID        string
	ruleID          string
	escalation      string
	registryVersion string
	minScore        float64
	limit           int
	offset          int
	sortBy          string
	sortOrder       string
	format          string
	output          string
	count           bool
	maxAge          time.Duration
}

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Query the verdict ledger",
	Long: `Query, export and prune recorded verdicts.

Verdicts are recorded by "verdict evaluate --record" and "verdict run
--record" (or with evidence.enabled in the config) into the backend
configured under evidence.

Subcommands:
  query   - Query verdict records with filters
  prune   - Delete records older than the retention age`,
}

var evidenceQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query verdict records",
	Long: `Query verdict records with filters and export them.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-04-01T00:00:00Z/2026-04-02T00:00:00Z"

Examples:
  # Critical verdicts of the last day
  verdict evidence query --since 24h --escalation critical

  # Every verdict that matched a rule, as CSV
  verdict evidence query --rule R-FIN-001 --format csv --output r-fin-001.csv

  # Count the records of one run
  verdict evidence query --run-id 2f1c... --count`,
	RunE: queryEvidence,
}

var evidencePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old verdict records",
	Long: `Delete records recorded before now minus the retention age.

The age defaults to evidence.retention.max_age and can be overridden with
--max-age. A zero age keeps everything.

Examples:
  verdict evidence prune --max-age 720h`,
	RunE: pruneEvidence,
}

func init() {
	f := evidenceQueryCmd.Flags()
	f.StringVar(&evidenceFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	f.DurationVar(&evidenceFlags.since, "since", 0, "only records from the last duration, e.g. 24h")
	f.StringVar(&evidenceFlags.runID, "run-id", "", "filter by run id")
	f.StringVar(&evidenceFlags.envelopeID, "envelope", "", "filter by envelope id")
	f.StringVar(&evidenceFlags.signalID, "signal", "", "filter by signal id")
	f.StringVar(&evidenceFlags.ruleID, "rule", "", "filter by matched rule id")
	f.StringVar(&evidenceFlags.escalation, "escalation", "", "filter by escalation level")
	f.StringVar(&evidenceFlags.registryVersion, "registry-version", "", "filter by registry version")
	f.Float64Var(&evidenceFlags.minScore, "min-score", -1, "minimum structural risk score")
	f.IntVar(&evidenceFlags.limit, "limit", 100, "maximum records to return")
	f.IntVar(&evidenceFlags.offset, "offset", 0, "records to skip")
	f.StringVar(&evidenceFlags.sortBy, "sort", "", "sort field (recorded_at, structural_risk_score, escalation)")
	f.StringVar(&evidenceFlags.sortOrder, "order", "", "sort order (asc, desc)")
	f.StringVarP(&evidenceFlags.format, "format", "f", "json", "output format (json, ndjson, csv)")
	f.StringVarP(&evidenceFlags.output, "output", "o", "-", "output file, - for stdout")
	f.BoolVar(&evidenceFlags.count, "count", false, "print the number of matching records only")

	evidencePruneCmd.Flags().DurationVar(&evidenceFlags.maxAge, "max-age", 0, "override evidence.retention.max_age")

	evidenceCmd.AddCommand(evidenceQueryCmd)
	evidenceCmd.AddCommand(evidencePruneCmd)
	rootCmd.AddCommand(evidenceCmd)
}

func queryEvidence(cmd *cobra.Command, args []string) error {
	query, err := buildEvidenceQuery(time.Now())
	if err != nil {
		return err
	}
	exporter, err := export.New(evidenceFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	s, err := newSession(cmd, "evidence")
	if err != nil {
		return err
	}
	defer s.close()
	ctx := commandContext(cmd)

	store, err := storage.New(&s.cfg.Evidence)
	if err != nil {
		return cli.NewCommandError("evidence query", err)
	}
	defer store.Close()

	if evidenceFlags.count {
		n, err := store.Count(ctx, query)
		if err != nil {
			return cli.NewCommandError("evidence query", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	}

	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("evidence query", err)
	}

	out, err := openOutput(cmd, evidenceFlags.output)
	if err != nil {
		return cli.NewCommandError("evidence query", err)
	}
	if err := exporter.Export(ctx, records, out); err != nil {
		out.Close()
		return cli.NewCommandError("evidence query", err)
	}
	if err := out.Close(); err != nil {
		return cli.NewCommandError("evidence query", err)
	}

	s.logger.Debug("evidence exported", "records", len(records), "format", evidenceFlags.format)
	return nil
}

// buildEvidenceQuery turns the query flags into a storage query. now
// anchors --since.
func buildEvidenceQuery(now time.Time) (*evidence.Query, error) {
	q := &evidence.Query{
		RunID:           evidenceFlags.runID,
		EnvelopeID:      evidenceFlags.envelopeID,
		SignalID:        evidenceFlags.signalID,
		RuleID:          evidenceFlags.ruleID,
		Escalation:      evidenceFlags.escalation,
		RegistryVersion: evidenceFlags.registryVersion,
		Limit:           evidenceFlags.limit,
		Offset:          evidenceFlags.offset,
		SortBy:          evidenceFlags.sortBy,
		SortOrder:       evidenceFlags.sortOrder,
	}

	if evidenceFlags.timeRange != "" && evidenceFlags.since > 0 {
		return nil, cli.NewConfigError("time-range", "--time-range and --since are mutually exclusive")
	}
	if evidenceFlags.timeRange != "" {
		parts := strings.Split(evidenceFlags.timeRange, "/")
		if len(parts) != 2 {
			return nil, cli.NewConfigError("time-range", "expected format start/end")
		}
		start, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			return nil, cli.NewConfigError("time-range", fmt.Sprintf("invalid start time: %v", err))
		}
		end, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, cli.NewConfigError("time-range", fmt.Sprintf("invalid end time: %v", err))
		}
		q.StartTime, q.EndTime = &start, &end
	}
	if evidenceFlags.since > 0 {
		start := now.Add(-evidenceFlags.since)
		q.StartTime = &start
	}
	if evidenceFlags.minScore >= 0 {
		score := evidenceFlags.minScore
		q.MinScore = &score
	}
	return q, nil
}

func pruneEvidence(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, "evidence")
	if err != nil {
		return err
	}
	defer s.close()

	store, err := storage.New(&s.cfg.Evidence)
	if err != nil {
		return cli.NewCommandError("evidence prune", err)
	}
	defer store.Close()

	rcfg := s.cfg.Evidence.Retention
	if evidenceFlags.maxAge > 0 {
		rcfg.MaxAge = evidenceFlags.maxAge
	}
	if rcfg.MaxAge <= 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Retention age is zero; nothing pruned")
		return nil
	}

	pruner := retention.NewPruner(store, rcfg, retention.Options{Metrics: s.tel.Metrics(), Logger: s.logger})
	n, err := pruner.Prune(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("evidence prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d record(s) older than %s\n", n, rcfg.MaxAge)
	return nil
}
