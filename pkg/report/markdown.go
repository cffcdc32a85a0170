package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"sta-hq/verdict/pkg/escalation"
)

// WriteMarkdown writes the human-readable digest.
func (r *Report) WriteMarkdown(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	fmt.Fprintf(&b, "- Report: `%s`\n", r.ReportID)
	fmt.Fprintf(&b, "- Input: `%s`\n", r.Input)
	if r.Registry.ID != "" {
		fmt.Fprintf(&b, "- Registry: `%s@%s` (version `%s`, %d rules)\n",
			r.Registry.ID, r.Registry.PackVersion, r.Registry.Version, r.Registry.Rules)
	}
	fmt.Fprintf(&b, "- Envelopes: **%d**\n", r.EnvelopesCount)
	fmt.Fprintf(&b, "- Violations: **%d**\n", r.ViolationsCount)
	fmt.Fprintf(&b, "- Invalid: **%d**\n", r.InvalidCount)
	b.WriteString("\n")

	b.WriteString("## Escalations\n\n")
	b.WriteString("| Level | Count |\n|---|---|\n")
	levels := escalation.Levels()
	slices.Reverse(levels)
	for _, l := range levels {
		fmt.Fprintf(&b, "| %s | %d |\n", l, r.EscalationCounts[l.String()])
	}
	b.WriteString("\n")

	b.WriteString("## Envelopes\n\n")
	if r.EnvelopesCount == 0 {
		b.WriteString("No envelopes evaluated.\n")
	}
	for i, e := range r.Results {
		writeEntry(&b, i+1, e)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeEntry(b *strings.Builder, n int, e Entry) {
	name := e.EnvelopeID
	if name == "" {
		name = "line " + strconv.Itoa(e.Index+1)
	}

	if e.Result == nil {
		fmt.Fprintf(b, "### %d. %s — invalid\n", n, name)
		fmt.Fprintf(b, "- Error: %s\n\n", e.Error)
		return
	}

	res := e.Result
	fmt.Fprintf(b, "### %d. %s — %s\n", n, name, res.Escalation)
	fmt.Fprintf(b, "- Signal: `%s`\n", res.SignalID)
	fmt.Fprintf(b, "- Structural risk score: %s (score level %s, floor %s)\n",
		strconv.FormatFloat(res.StructuralRiskScore, 'f', -1, 64), res.ScoreLevel, res.FloorLevel)

	if len(res.Violations) == 0 {
		b.WriteString("\nNo violations triggered.\n")
	} else {
		b.WriteString("- Violations:\n")
		for _, v := range res.Violations {
			fmt.Fprintf(b, "  - `%s` %s (floor %s)\n", v.RuleID, v.ViolationType, v.EscalationLevelMin)
		}
	}
	for _, nc := range res.Nonconformances {
		fmt.Fprintf(b, "- Nonconformance: `%s` %s\n", nc.Field, nc.Problem)
	}
	b.WriteString("\n")
}
