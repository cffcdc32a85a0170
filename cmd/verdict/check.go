package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sta-hq/verdict/pkg/cli"
	"sta-hq/verdict/pkg/compat"
)

var checkFlags struct {
	old    string
	new    string
	format string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that a rule pack revision is compatible",
	Long: `Compare two rule pack revisions and report incompatible changes.

A change is incompatible when envelopes or consumers that worked with the
old revision could silently change meaning under the new one: a removed
or retyped stable identifier, a removed signal or required field, a
removed rule, a lowered escalation floor, or a pack version that does not
move forward. A major version bump allows structural changes.

When --old is omitted the configured registry source is used, so a
candidate pack can be checked against what "verdict run" serves.

Exits 1 when the revisions are incompatible.

Examples:
  verdict check --old rules-v1/ --new rules-v2/
  verdict check --new rules-next/ --format json`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkFlags.old, "old", "", "current rule pack (default: registry settings from config)")
	checkCmd.Flags().StringVar(&checkFlags.new, "new", "", "candidate rule pack")
	checkCmd.Flags().StringVarP(&checkFlags.format, "format", "f", "text", "output format (text, json)")
	_ = checkCmd.MarkFlagRequired("new")

	rootCmd.AddCommand(checkCmd)
}

type checkResult struct {
	Old        string `json:"old"`
	New        string `json:"new"`
	Compatible bool   `json:"compatible"`
	compat.Report
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkFlags.new == "" {
		return cli.NewConfigError("new", "candidate rule pack is required")
	}
	format, err := cli.ParseFormat(checkFlags.format)
	if err != nil {
		return err
	}

	s, err := newSession(cmd, "check")
	if err != nil {
		return err
	}
	defer s.close()
	ctx := commandContext(cmd)

	oldSrc, err := s.source(checkFlags.old)
	if err != nil {
		return err
	}
	oldSnap, err := s.loadSnapshot(ctx, checkFlags.old)
	if err != nil {
		return cli.NewCommandError("check", fmt.Errorf("old revision: %w", err))
	}
	newSnap, err := s.loadSnapshot(ctx, checkFlags.new)
	if err != nil {
		return cli.NewCommandError("check", fmt.Errorf("new revision: %w", err))
	}

	rep := compat.Check(oldSnap.Revision(), newSnap.Revision())
	if rep.Violations == nil {
		rep.Violations = []compat.Violation{}
	}
	result := checkResult{Old: oldSrc.String(), New: checkFlags.new, Compatible: rep.OK(), Report: rep}

	f, err := cli.NewFormatter(format)
	if err != nil {
		return err
	}
	if err := f.FormatTo(cmd.OutOrStdout(), result); err != nil {
		return cli.NewCommandError("check", err)
	}

	if !rep.OK() {
		s.logger.Debug("incompatible revision", "kinds", rep.Kinds())
		return &cli.ExitError{
			Code:   cli.ExitFailure,
			Reason: fmt.Sprintf("%d incompatible change(s)", len(rep.Violations)),
		}
	}
	return nil
}

func (r checkResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "%s (%s) -> %s (%s)\n", r.Old, orDash(r.OldVersion), r.New, orDash(r.NewVersion))
	if r.MajorBump {
		fmt.Fprintln(w, "Major version bump: structural changes allowed")
	}
	if r.Compatible {
		_, err := fmt.Fprintln(w, "✓ compatible")
		return err
	}
	fmt.Fprintf(w, "✗ %d incompatible change(s):\n", len(r.Violations))
	for _, v := range r.Violations {
		fmt.Fprintf(w, "  - %s\n", v)
	}
	return nil
}
