package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"sta-hq/verdict/pkg/evidence"
)

// csvHeader lists the columns in output order.
var csvHeader = []string{
	"id", "run_id", "recorded_at",
	"envelope_id", "signal_id", "structural_risk_score",
	"escalation", "score_level", "floor_level",
	"rule_ids", "violation_count",
	"registry_version", "pack_id", "pack_version",
	"result_hash",
}

// CSVExporter writes records as CSV. Rule ids are joined with ";".
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes records to w.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write(recordToRow(record)); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return evidence.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records as they arrive, flushing every 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return evidence.NewExportError("csv", 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return evidence.NewExportError("csv", count, err)
			}
			count++

			if count%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
			}
		}
	}
}

func recordToRow(r *evidence.Record) []string {
	recordedAt := ""
	if !r.RecordedAt.IsZero() {
		recordedAt = r.RecordedAt.UTC().Format(time.RFC3339Nano)
	}

	return []string{
		r.ID,
		r.RunID,
		recordedAt,
		r.EnvelopeID,
		r.SignalID,
		strconv.FormatFloat(r.StructuralRiskScore, 'f', -1, 64),
		r.Escalation,
		r.ScoreLevel,
		r.FloorLevel,
		strings.Join(r.RuleIDs, ";"),
		strconv.Itoa(r.ViolationCount),
		r.RegistryVersion,
		r.PackID,
		r.PackVersion,
		r.ResultHash,
	}
}
