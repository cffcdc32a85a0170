// Package metrics provides Prometheus metrics for verdict.
//
// # Metrics Categories
//
//   - Evaluation Metrics: evaluated envelopes, rule matches, invalid envelopes
//     and evaluation duration
//   - Registry Metrics: reload attempts by result and the active rule count
//   - Evidence Metrics: ledger writes and retention pruning
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	// Record an evaluation
//	collector.RecordEvaluation("exposure", "advisory", d, matchedRuleIDs)
//
//	// Observe registry reloads
//	reloader := registry.NewReloader(store, src, loader, registry.ReloaderOptions{
//		Observer: collector,
//	})
//
//	// Expose the endpoint
//	mux.Handle("/metrics", collector.Handler())
//
// # Cardinality
//
// Signal and rule ids come from rule packs. Once more than 10,000 distinct
// values have been seen, new values are reported under the "other" label.
package metrics
