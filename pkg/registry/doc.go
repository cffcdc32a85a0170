// Package registry holds the rules evaluated against signal envelopes.
//
// # Snapshots
//
// A Snapshot is an immutable registry: rules keyed by signal_id in
// registration order, the pack's signal definitions and stable identifiers,
// and the escalation Policy built from the pack's thresholds. Snapshots are
// produced by a Builder, or by a Loader from rule pack documents, and are
// published through a Store:
//
//	store := registry.NewStore(nil)
//	snap, err := registry.NewLoader(nil, logger).Load(ctx, "./rules")
//	if err != nil {
//	    return err
//	}
//	store.Swap(snap)
//
//	rules := store.Current().RulesFor("FIN.BS.EQUATION_BREAK")
//
// Readers call Current once per unit of work and use that snapshot
// throughout, so a concurrent swap never mixes two rule sets.
//
// # Rule pack documents
//
// A rule pack is one YAML or JSON document, or a directory of documents
// merged in lexical order. Exactly one document declares the pack id and
// semantic version; at most one declares thresholds and envelope
// identifiers. Documents are checked against an embedded JSON Schema before
// they are decoded, and any error aborts the whole load:
//
//	pack: {id: sta.financial, version: 1.2.0}
//	thresholds:
//	  - {min_score: 0.9, level: critical}
//	rules:
//	  - rule_id: R-FIN-001
//	    signal_id: FIN.BS.EQUATION_BREAK
//	    violation_type: equation_break
//	    escalation_level_min: board_review
//	    condition: {field: delta, operator: ">", value: 1000}
//
// # Reloading
//
// A Reloader fetches a Source (a local path or a Git repository), loads it
// with retries, checks the result against the current snapshot with the
// compatibility guard and swaps it in. A Watcher (fsnotify) or a Schedule
// (cron) triggers reloads.
package registry
