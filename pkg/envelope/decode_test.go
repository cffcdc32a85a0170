package envelope

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	record := map[string]any{
		"sta_version":           "0.1",
		"envelope_id":           "env-7",
		"signal_id":             "FIN.EQ.ROLLFORWARD_BREAK",
		"signal_category":       "financial",
		"signal_type":           "constraint",
		"structural_risk_score": 0.75,
		"entity_id":             "ACME",
		"payload": map[string]any{
			"delta":    -2500.0,
			"restated": true,
			"statements": []any{
				"EQ", "BS", "EQ",
			},
			"bs": map[string]any{"closing": 10.0},
			"note": nil,
		},
	}

	env, err := Decode(record)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := env.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if env.StructuralRiskScore() != 0.75 {
		t.Errorf("StructuralRiskScore() = %v, want 0.75", env.StructuralRiskScore())
	}

	wantNames := []string{"bs.closing", "delta", "entity_id", "restated", "statements"}
	if got := env.FieldNames(); !reflect.DeepEqual(got, wantNames) {
		t.Errorf("FieldNames() = %v, want %v", got, wantNames)
	}

	statements, _ := env.Field("statements")
	if !statements.Equal(StringSet("BS", "EQ")) {
		t.Errorf("Field(statements) = %v, want [BS EQ]", statements)
	}
	if _, ok := env.Field("note"); ok {
		t.Error("null field should be absent")
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]any
		field  string
	}{
		{name: "non-string identifier", record: map[string]any{"signal_id": 12.0}, field: "signal_id"},
		{name: "non-numeric score", record: map[string]any{"structural_risk_score": "high"}, field: "structural_risk_score"},
		{name: "mixed list", record: map[string]any{"tags": []any{"a", 1.0}}, field: "tags"},
		{name: "duplicate after flatten", record: map[string]any{
			"delta":   1.0,
			"payload": map[string]any{"delta": 2.0},
		}, field: "delta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.record)
			var invalid *InvalidEnvelopeError
			if !errors.As(err, &invalid) {
				t.Fatalf("Decode() error = %v, want *InvalidEnvelopeError", err)
			}
			if invalid.Field != tt.field {
				t.Errorf("Field = %q, want %q", invalid.Field, tt.field)
			}
		})
	}
}

func TestDecode_NumbersAsStringsStayStrings(t *testing.T) {
	env, err := Decode(map[string]any{"amount": "1,234"})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	v, _ := env.Field("amount")
	if v.Kind() != KindString {
		t.Errorf("Field(amount).Kind() = %v, want string", v.Kind())
	}
}

func TestDecoder_Next(t *testing.T) {
	input := strings.Join([]string{
		`{"envelope_id":"a","signal_id":"S"}`,
		``,
		`{not json`,
		`{"envelope_id":"b","signal_id":"S"}`,
	}, "\n")

	dec := NewDecoder(strings.NewReader(input))

	env, err := dec.Next()
	if err != nil || env.ID() != "a" {
		t.Fatalf("Next() = %v, %v, want envelope a", env, err)
	}

	_, err = dec.Next()
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Next() error = %v, want *DecodeError", err)
	}
	if decodeErr.Line != 3 {
		t.Errorf("DecodeError.Line = %d, want 3", decodeErr.Line)
	}
	if !errors.Is(err, ErrInvalidEnvelope) {
		t.Error("malformed line should unwrap to ErrInvalidEnvelope")
	}

	env, err = dec.Next()
	if err != nil || env.ID() != "b" {
		t.Fatalf("Next() = %v, %v, want envelope b", env, err)
	}

	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestReadAll(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantIDs   []string
		wantFails int
	}{
		{name: "empty", input: "  \n"},
		{
			name:    "array",
			input:   ` [{"envelope_id":"a"},{"envelope_id":"b"}]`,
			wantIDs: []string{"a", "b"},
		},
		{
			name:      "ndjson with bad line",
			input:     "{\"envelope_id\":\"a\"}\n[1]\n{\"envelope_id\":\"c\"}\n",
			wantIDs:   []string{"a", "", "c"},
			wantFails: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ReadAll(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if len(items) != len(tt.wantIDs) {
				t.Fatalf("len(items) = %d, want %d", len(items), len(tt.wantIDs))
			}
			fails := 0
			for i, item := range items {
				if item.Err != nil {
					fails++
					continue
				}
				if item.Envelope.ID() != tt.wantIDs[i] {
					t.Errorf("items[%d].ID() = %q, want %q", i, item.Envelope.ID(), tt.wantIDs[i])
				}
			}
			if fails != tt.wantFails {
				t.Errorf("failures = %d, want %d", fails, tt.wantFails)
			}
		})
	}
}
