package envelope

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// payloadKey names the object whose members become top-level field names.
const payloadKey = "payload"

// DefaultMaxRecordSize bounds a single line read by a Decoder.
const DefaultMaxRecordSize = 1 << 20

// Decode builds an envelope from a decoded JSON or YAML record.
// Stable identifiers must be strings. Nested objects are flattened with
// dot notation and null values are treated as absent. It does not call
// Validate; a record missing identifiers still decodes.
func Decode(record map[string]any) (*Envelope, error) {
	var ids Identifiers
	var score float64
	fields := make(map[string]Value)

	for key, raw := range record {
		switch key {
		case KeySTAVersion, KeyEnvelopeID, KeySignalID, KeySignalCategory, KeySignalType:
			if raw == nil {
				continue
			}
			s, ok := raw.(string)
			if !ok {
				return nil, &InvalidEnvelopeError{Field: key, Reason: fmt.Sprintf("stable identifier must be a string, got %T", raw)}
			}
			ids.set(key, s)

		case KeyStructuralRiskScore:
			if raw == nil {
				continue
			}
			n, ok := toNumber(raw)
			if !ok {
				return nil, &InvalidEnvelopeError{Field: key, Reason: fmt.Sprintf("must be a number, got %T", raw)}
			}
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return nil, &InvalidEnvelopeError{Field: key, Reason: "must be a finite number"}
			}
			score = n

		case payloadKey:
			nested, ok := raw.(map[string]any)
			if !ok {
				if err := addField(fields, key, raw); err != nil {
					return nil, err
				}
				continue
			}
			if err := flatten(fields, "", nested); err != nil {
				return nil, err
			}

		default:
			if err := addField(fields, key, raw); err != nil {
				return nil, err
			}
		}
	}

	env := New(ids, score, fields)
	return env, nil
}

// DecodeJSON decodes a single JSON object into an envelope.
func DecodeJSON(data []byte) (*Envelope, error) {
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, &InvalidEnvelopeError{Reason: fmt.Sprintf("malformed record: %v", err)}
	}
	if record == nil {
		return nil, &InvalidEnvelopeError{Reason: "record must be a JSON object"}
	}
	return Decode(record)
}

func (ids *Identifiers) set(name, value string) {
	switch name {
	case KeySTAVersion:
		ids.STAVersion = value
	case KeyEnvelopeID:
		ids.EnvelopeID = value
	case KeySignalID:
		ids.SignalID = value
	case KeySignalCategory:
		ids.SignalCategory = value
	case KeySignalType:
		ids.SignalType = value
	}
}

func flatten(fields map[string]Value, prefix string, nested map[string]any) error {
	for key, raw := range nested {
		if err := addField(fields, prefix+key, raw); err != nil {
			return err
		}
	}
	return nil
}

func addField(fields map[string]Value, name string, raw any) error {
	if raw == nil {
		return nil
	}
	if nested, ok := raw.(map[string]any); ok {
		return flatten(fields, name+".", nested)
	}
	v, err := ToValue(raw)
	if err != nil {
		return &InvalidEnvelopeError{Field: name, Reason: err.Error()}
	}
	if _, exists := fields[name]; exists {
		return &InvalidEnvelopeError{Field: name, Reason: "duplicate field after flattening"}
	}
	fields[name] = v
	return nil
}

// ToValue converts a decoded literal to a Value. Strings, numbers and
// booleans map to their kinds; a list of strings becomes a set.
func ToValue(raw any) (Value, error) {
	switch val := raw.(type) {
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case []any:
		members := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return Value{}, fmt.Errorf("list element %d: sets may only contain strings, got %T", i, item)
			}
			members = append(members, s)
		}
		return StringSet(members...), nil
	case []string:
		return StringSet(val...), nil
	}
	if n, ok := toNumber(raw); ok {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return Value{}, errors.New("numbers must be finite")
		}
		return Number(n), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", raw)
}

func toNumber(raw any) (float64, bool) {
	switch val := raw.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Decoder reads envelopes from line-delimited JSON. Blank lines are skipped.
// A malformed line yields a *DecodeError and the decoder moves on to the
// next line.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderSize(r, DefaultMaxRecordSize)
}

// NewDecoderSize returns a decoder whose records may be at most maxSize bytes.
func NewDecoderSize(r io.Reader, maxSize int) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSize)
	return &Decoder{scanner: scanner}
}

// Next returns the next envelope. It returns io.EOF when the input is
// exhausted. Errors other than *DecodeError are not recoverable.
func (d *Decoder) Next() (*Envelope, error) {
	for d.scanner.Scan() {
		d.line++
		data := bytes.TrimSpace(d.scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		env, err := DecodeJSON(data)
		if err != nil {
			return nil, &DecodeError{Line: d.line, Err: err}
		}
		return env, nil
	}
	if err := d.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return nil, io.EOF
}

// Line returns the number of the line last read.
func (d *Decoder) Line() int {
	return d.line
}

// Item is one decoded record or the error that replaced it.
type Item struct {
	Envelope *Envelope
	Err      error
}

// ReadAll decodes every record from r. Input starting with '[' is read as
// a JSON array of records, anything else as line-delimited JSON. Per-record
// failures are returned in place so callers can report them without
// dropping the rest of the input.
func ReadAll(r io.Reader) ([]Item, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if first == '[' {
		var records []json.RawMessage
		if err := json.NewDecoder(br).Decode(&records); err != nil {
			return nil, fmt.Errorf("decoding record array: %w", err)
		}
		items := make([]Item, len(records))
		for i, raw := range records {
			env, err := DecodeJSON(raw)
			if err != nil {
				err = &DecodeError{Line: i + 1, Err: err}
			}
			items[i] = Item{Envelope: env, Err: err}
		}
		return items, nil
	}

	dec := NewDecoder(br)
	var items []Item
	for {
		env, err := dec.Next()
		if err == io.EOF {
			return items, nil
		}
		var decodeErr *DecodeError
		if err != nil && !errors.As(err, &decodeErr) {
			return items, err
		}
		items = append(items, Item{Envelope: env, Err: err})
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !strings.ContainsRune(" \t\r\n", rune(b)) {
			return b, br.UnreadByte()
		}
	}
}
