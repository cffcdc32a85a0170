// Package export writes ledger records as JSON, NDJSON or CSV.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"sta-hq/verdict/pkg/evidence"
)

// New returns the exporter for format: "json", "ndjson" or "csv".
func New(format string) (evidence.Exporter, error) {
	switch format {
	case "json":
		return NewJSONExporter(true), nil
	case "ndjson":
		return &JSONExporter{Lines: true}, nil
	case "csv":
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (expected json, ndjson or csv)", format)
	}
}

// JSONExporter writes records as a JSON array or as one object per line.
type JSONExporter struct {
	// Pretty enables indentation. Ignored when Lines is set.
	Pretty bool

	// Lines writes newline-delimited JSON instead of an array.
	Lines bool
}

// NewJSONExporter creates an array exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records to w. An empty slice yields "[]" (or nothing in
// line mode).
func (e *JSONExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan *evidence.Record)
	go func() {
		defer close(ch)
		for _, r := range records {
			select {
			case ch <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return e.ExportStream(ctx, ch, w)
}

// ExportStream writes records as they arrive on recordsCh until it closes.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error {
	if e.Lines {
		return e.streamLines(ctx, recordsCh, w)
	}

	if _, err := io.WriteString(w, "["); err != nil {
		return evidence.NewExportError("json", 0, err)
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				closing := "]"
				if e.Pretty && count > 0 {
					closing = "\n]"
				}
				if _, err := io.WriteString(w, closing+"\n"); err != nil {
					return evidence.NewExportError("json", count, err)
				}
				return nil
			}

			sep := ","
			if count == 0 {
				sep = ""
			}
			if e.Pretty {
				sep += "\n  "
			}
			if _, err := io.WriteString(w, sep); err != nil {
				return evidence.NewExportError("json", count, err)
			}

			data, err := e.serialize(record)
			if err != nil {
				return evidence.NewExportError("json", count, err)
			}
			if _, err := w.Write(data); err != nil {
				return evidence.NewExportError("json", count, err)
			}
			count++
		}
	}
}

func (e *JSONExporter) streamLines(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error {
	enc := json.NewEncoder(w)
	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, ok := <-recordsCh:
			if !ok {
				return nil
			}
			if err := enc.Encode(record); err != nil {
				return evidence.NewExportError("ndjson", count, err)
			}
			count++
		}
	}
}

func (e *JSONExporter) serialize(record *evidence.Record) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}
