package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"sta-hq/verdict/pkg/cli"
	"sta-hq/verdict/pkg/condition"
	"sta-hq/verdict/pkg/envelope"
	"sta-hq/verdict/pkg/registry"
)

var lintFlags struct {
	registry string
	strict   bool
	format   string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate a rule pack",
	Long: `Validate a rule pack and report likely mistakes.

The pack is loaded exactly as "verdict evaluate" and "verdict run" would
load it, so any error reported here would also fail a reload. Lint also
warns about things that load but are probably unintended:
  - rules whose signal has no definition in the pack
  - signals declared without any rule
  - rules without a condition (they match every envelope of their signal)
  - conditions on fields their signal does not declare
  - comparisons that can never match the declared kind of their field
  - deprecated rules
  - an empty threshold table (escalation then comes from rule floors only)

Examples:
  # Lint a directory
  verdict lint --registry rules/

  # Fail on warnings too
  verdict lint --registry rules/ --strict

  # Machine-readable output
  verdict lint --registry rules/ --format json`,
	RunE: runLint,
}

func init() {
	lintCmd.Flags().StringVarP(&lintFlags.registry, "registry", "r", "", "rule pack file or directory (default: registry settings from config)")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
	lintCmd.Flags().StringVarP(&lintFlags.format, "format", "f", "text", "output format (text, json)")

	rootCmd.AddCommand(lintCmd)
}

// lintWarning is a finding that does not prevent loading.
type lintWarning struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type lintResult struct {
	Source     string        `json:"source"`
	Valid      bool          `json:"valid"`
	Pack       string        `json:"pack,omitempty"`
	Version    string        `json:"version,omitempty"`
	Rules      int           `json:"rules"`
	Signals    int           `json:"signals"`
	Thresholds int           `json:"thresholds"`
	Error      string        `json:"error,omitempty"`
	Warnings   []lintWarning `json:"warnings"`

	// Conditions holds each rule's condition in its declarative form.
	Conditions map[string]any `json:"conditions,omitempty"`
}

func runLint(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(lintFlags.format)
	if err != nil {
		return err
	}

	s, err := newSession(cmd, "lint")
	if err != nil {
		return err
	}
	defer s.close()

	src, err := s.source(lintFlags.registry)
	if err != nil {
		return err
	}
	result := lintResult{Source: src.String(), Warnings: []lintWarning{}}

	snap, err := s.loadSnapshot(commandContext(cmd), lintFlags.registry)
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Valid = true
		result.fill(snap)
	}

	f, err := cli.NewFormatter(format)
	if err != nil {
		return err
	}
	if err := f.FormatTo(cmd.OutOrStdout(), result); err != nil {
		return cli.NewCommandError("lint", err)
	}

	switch {
	case !result.Valid:
		return &cli.ExitError{Code: cli.ExitFailure, Reason: "rule pack is invalid"}
	case lintFlags.strict && len(result.Warnings) > 0:
		return &cli.ExitError{Code: cli.ExitFailure, Reason: fmt.Sprintf("%d warning(s) in strict mode", len(result.Warnings))}
	}
	return nil
}

func (r *lintResult) fill(snap *registry.Snapshot) {
	pack := snap.Pack()
	r.Pack = pack.ID + "@" + pack.Version
	r.Version = snap.Version()
	r.Rules = snap.Len()
	r.Signals = len(snap.Signals())
	r.Thresholds = snap.Policy().Table().Len()

	if r.Thresholds == 0 {
		r.warn("thresholds", "threshold table is empty; escalation comes from rule floors only")
	}

	used := make(map[string]bool)
	r.Conditions = make(map[string]any, r.Rules)
	for _, rule := range snap.Rules() {
		used[rule.SignalID] = true
		r.Conditions[rule.ID] = condition.Encode(rule.Condition)
		if def, ok := snap.Signal(rule.SignalID); ok {
			r.checkFields(rule, def)
		} else {
			r.warn(rule.ID, fmt.Sprintf("signal %q has no definition", rule.SignalID))
		}
		if rule.Condition == nil {
			r.warn(rule.ID, "no condition; matches every envelope of its signal")
		}
		if rule.Deprecated {
			r.warn(rule.ID, "deprecated")
		}
	}

	for _, def := range snap.Signals() {
		if !used[def.SignalID] {
			r.warn(def.SignalID, "signal has no rules")
		}
	}
}

// checkFields warns about comparisons that are false for every envelope
// conforming to def.
func (r *lintResult) checkFields(rule registry.Rule, def envelope.SignalDefinition) {
	for _, name := range condition.Fields(rule.Condition) {
		if _, _, declared := def.FieldKind(name); !declared {
			r.warn(rule.ID, fmt.Sprintf("field %q is not declared by signal %s", name, def.SignalID))
		}
	}
	for _, c := range condition.Comparisons(rule.Condition) {
		kind, _, declared := def.FieldKind(c.Field)
		if declared && !c.Matchable(kind) {
			r.warn(rule.ID, fmt.Sprintf("%s %s %s never matches %s field %q", c.Field, c.Operator, c.Value, kind, c.Field))
		}
	}
}

func (r *lintResult) warn(subject, message string) {
	r.Warnings = append(r.Warnings, lintWarning{Subject: subject, Message: message})
}

func (r lintResult) WriteText(w io.Writer) error {
	if !r.Valid {
		_, err := fmt.Fprintf(w, "✗ %s\n  %s\n", r.Source, r.Error)
		return err
	}

	fmt.Fprintf(w, "✓ %s: %s (version %s)\n", r.Source, r.Pack, r.Version)
	fmt.Fprintf(w, "  %d rules, %d signals, %d thresholds\n", r.Rules, r.Signals, r.Thresholds)
	if len(r.Warnings) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\nWarnings (%d):\n", len(r.Warnings))
	warnings := slices.Clone(r.Warnings)
	slices.SortStableFunc(warnings, func(a, b lintWarning) int {
		return strings.Compare(a.Subject, b.Subject)
	})
	for _, warning := range warnings {
		fmt.Fprintf(w, "  ⚠ %s: %s\n", warning.Subject, warning.Message)
	}
	return nil
}
