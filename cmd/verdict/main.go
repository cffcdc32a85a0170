// Verdict evaluates STA signal envelopes against a versioned rule registry
// and resolves each envelope to an escalation level.
//
// Usage:
//
//	# Evaluate a batch and write the run report
//	verdict evaluate --registry rules/ --input envelopes.ndjson --out report.json --markdown report.md
//
//	# Check a rule pack for problems
//	verdict lint --registry rules/
//
//	# Check that a new rule pack is compatible with the current one
//	verdict check --old rules-v1/ --new rules-v2/
//
//	# Stream envelopes from stdin, reload rules on change, serve /metrics and /healthz
//	verdict run --config verdict.yaml
//
//	# Query recorded verdicts
//	verdict evidence query --escalation critical --format csv
//
//	# Show version information
//	verdict version
package main

func main() {
	Execute()
}
