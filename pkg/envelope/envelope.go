package envelope

import (
	"encoding/json"
	"maps"
	"math"
	"slices"
)

// Stable identifier names as they appear on the wire.
const (
	KeySTAVersion          = "sta_version"
	KeyEnvelopeID          = "envelope_id"
	KeySignalID            = "signal_id"
	KeySignalCategory      = "signal_category"
	KeySignalType          = "signal_type"
	KeyStructuralRiskScore = "structural_risk_score"
)

// StableIdentifiers returns the stable identifier names in canonical order.
func StableIdentifiers() []string {
	return []string{KeySTAVersion, KeyEnvelopeID, KeySignalID, KeySignalCategory, KeySignalType}
}

// Identifiers holds the stable identifiers of an envelope.
type Identifiers struct {
	STAVersion     string `json:"sta_version"`
	EnvelopeID     string `json:"envelope_id"`
	SignalID       string `json:"signal_id"`
	SignalCategory string `json:"signal_category"`
	SignalType     string `json:"signal_type"`
}

func (ids Identifiers) get(name string) string {
	switch name {
	case KeySTAVersion:
		return ids.STAVersion
	case KeyEnvelopeID:
		return ids.EnvelopeID
	case KeySignalID:
		return ids.SignalID
	case KeySignalCategory:
		return ids.SignalCategory
	case KeySignalType:
		return ids.SignalType
	}
	return ""
}

// Envelope is one immutable signal instance.
type Envelope struct {
	ids    Identifiers
	score  float64
	fields map[string]Value
}

// New creates an envelope. The fields map is copied.
func New(ids Identifiers, score float64, fields map[string]Value) *Envelope {
	return &Envelope{
		ids:    ids,
		score:  score,
		fields: maps.Clone(fields),
	}
}

// Identifiers returns the stable identifiers.
func (e *Envelope) Identifiers() Identifiers { return e.ids }

// ID returns the envelope_id.
func (e *Envelope) ID() string { return e.ids.EnvelopeID }

// SignalID returns the signal_id used for rule lookup.
func (e *Envelope) SignalID() string { return e.ids.SignalID }

// StructuralRiskScore returns the externally computed risk score.
func (e *Envelope) StructuralRiskScore() float64 { return e.score }

// Field returns the payload value stored under name.
func (e *Envelope) Field(name string) (Value, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// FieldNames returns the payload field names in sorted order.
func (e *Envelope) FieldNames() []string {
	return slices.Sorted(maps.Keys(e.fields))
}

// Len returns the number of payload fields.
func (e *Envelope) Len() int {
	return len(e.fields)
}

// Validate checks that every stable identifier is present and the score is
// finite. It returns an *InvalidEnvelopeError otherwise.
func (e *Envelope) Validate() error {
	var missing []string
	for _, name := range StableIdentifiers() {
		if e.ids.get(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &InvalidEnvelopeError{EnvelopeID: e.ids.EnvelopeID, Missing: missing}
	}
	if math.IsNaN(e.score) || math.IsInf(e.score, 0) {
		return &InvalidEnvelopeError{
			EnvelopeID: e.ids.EnvelopeID,
			Field:      KeyStructuralRiskScore,
			Reason:     "must be a finite number",
		}
	}
	return nil
}

// MarshalJSON encodes the envelope as a flat record with payload fields
// under "payload".
func (e *Envelope) MarshalJSON() ([]byte, error) {
	type record struct {
		Identifiers
		StructuralRiskScore float64          `json:"structural_risk_score"`
		Payload             map[string]Value `json:"payload"`
	}
	payload := e.fields
	if payload == nil {
		payload = map[string]Value{}
	}
	return json.Marshal(record{Identifiers: e.ids, StructuralRiskScore: e.score, Payload: payload})
}

// Map is a plain field set. It satisfies the same lookup contract as
// Envelope and is convenient for tests and ad-hoc evaluation.
type Map map[string]Value

// Field returns the value stored under name.
func (m Map) Field(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}
