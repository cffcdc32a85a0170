package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is one indented JSON document.
	FormatJSON OutputFormat = "json"
	// FormatNDJSON writes one JSON object per line; slices are split into
	// one line per element.
	FormatNDJSON OutputFormat = "ndjson"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatText, FormatJSON, FormatNDJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", NewConfigError("format", fmt.Sprintf("unknown output format %q (expected text, json or ndjson)", s))
	}
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextWriter is implemented by values with a custom text rendering.
type TextWriter interface {
	WriteText(w io.Writer) error
}

// TextFormatter formats output as plain text.
type TextFormatter struct{}

// FormatTo writes data to w using WriteText when available.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	if tw, ok := data.(TextWriter); ok {
		return tw.WriteText(w)
	}
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w as a single JSON document.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NDJSONFormatter writes newline-delimited JSON.
type NDJSONFormatter struct{}

// FormatTo writes each element of a slice on its own line; any other value
// is written as one line.
func (f *NDJSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)

	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return encoder.Encode(data)
	}
	for i := range v.Len() {
		if err := encoder.Encode(v.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// NewFormatter creates a formatter for format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}, nil
	case FormatNDJSON:
		return &NDJSONFormatter{}, nil
	case FormatText, "":
		return &TextFormatter{}, nil
	default:
		return nil, NewConfigError("format", fmt.Sprintf("unknown output format %q", format))
	}
}
