// Package evidence records verdicts in an append-only ledger so that every
// escalation decision can be traced back to the envelope, the registry
// snapshot and the rules that produced it.
//
// # Records
//
// Each Record captures:
//   - the envelope and signal identity
//   - the structural risk score and the three escalation levels
//   - the ids of the matched rules
//   - the registry version and rule pack identity
//   - a SHA-256 hash of the canonical result for tamper evidence
//
// # Layout
//
//   - storage: memory and SQLite backends implementing Storage
//   - recorder: builds records from engine batch results
//   - query: validation and defaults for Query
//   - retention: age-based pruning on a cron schedule
//   - export: JSON and CSV writers
//
// # Usage
//
//	store, err := storage.New(&cfg.Evidence)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rec := recorder.New(store, recorder.Options{Metrics: collector})
//	n, err := rec.RecordBatch(ctx, runID, snapshot, items)
//
//	records, err := store.Query(ctx, &evidence.Query{
//	    Escalation: "critical",
//	    Limit:      50,
//	})
package evidence
