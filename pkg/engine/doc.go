// Package engine evaluates signal envelopes against the active rule
// registry snapshot.
//
// # Evaluation
//
// For one envelope the engine:
//
//  1. Rejects envelopes with missing stable identifiers or a non-finite
//     structural risk score (envelope.ErrInvalidEnvelope).
//  2. Resolves the rules registered for the envelope's signal_id. A signal
//     with no rules is not an error; it yields zero violations.
//  3. Evaluates every rule's condition independently. Each match produces
//     one violation, in registration order.
//  4. Combines the score-derived level with the highest rule floor.
//
// Evaluation performs no I/O and never blocks. Concurrent calls against one
// snapshot are safe and produce the same results as sequential calls.
//
// # Batches
//
// EvaluateAll captures a single snapshot for the whole batch, so a registry
// reload in the middle of a batch is not observed by any of its envelopes.
// Items are fanned out across a bounded worker pool and results keep input
// order. An invalid envelope fails only its own item.
//
//	eng := engine.New(store, engine.Options{Workers: 8, Metrics: collector})
//	for _, item := range eng.EvaluateAll(ctx, envelopes) {
//	    if item.Err != nil {
//	        // reject this envelope, keep going
//	    }
//	}
package engine
