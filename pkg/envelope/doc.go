// Package envelope defines the immutable signal envelope evaluated by the
// rule engine.
//
// An envelope carries five stable identifiers (sta_version, envelope_id,
// signal_id, signal_category, signal_type), an externally computed
// structural risk score and an open set of payload fields. Payload values
// belong to a closed set of kinds:
//
//   - string
//   - number (float64)
//   - boolean
//   - set of strings (de-duplicated, sorted)
//
// Envelopes are usually decoded from line-delimited JSON:
//
//	dec := envelope.NewDecoder(os.Stdin)
//	for {
//		env, err := dec.Next()
//		if err == io.EOF {
//			break
//		}
//		...
//	}
//
// Nested objects are flattened with dot notation. The conventional
// "payload" object is flattened into top-level field names, so
// {"payload": {"delta": 3}} yields the field "delta".
package envelope
