package evidence

import (
	"context"
	"io"
	"slices"
	"time"
)

// Record is one verdict written to the ledger. Records are never updated.
type Record struct {
	// ID is a UUID assigned when the record is built.
	ID string `json:"id"`

	// RunID groups the records of one batch or one long-running session.
	RunID string `json:"run_id"`

	// RecordedAt is when the record was built.
	RecordedAt time.Time `json:"recorded_at"`

	EnvelopeID          string  `json:"envelope_id"`
	SignalID            string  `json:"signal_id"`
	StructuralRiskScore float64 `json:"structural_risk_score"`

	// Escalation, ScoreLevel and FloorLevel hold canonical level names.
	Escalation string `json:"escalation"`
	ScoreLevel string `json:"score_level"`
	FloorLevel string `json:"floor_level"`

	// RuleIDs lists matched rules in registration order.
	RuleIDs        []string `json:"rule_ids"`
	ViolationCount int      `json:"violation_count"`

	RegistryVersion string `json:"registry_version"`
	PackID          string `json:"pack_id"`
	PackVersion     string `json:"pack_version"`

	// ResultHash is the hex SHA-256 of the canonical JSON result.
	ResultHash string `json:"result_hash"`
}

// HasRule reports whether ruleID matched.
func (r *Record) HasRule(ruleID string) bool {
	return slices.Contains(r.RuleIDs, ruleID)
}

// Query defines filter parameters for querying records.
type Query struct {
	// Time range on RecordedAt, both bounds inclusive.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Filters
	RunID           string `json:"run_id,omitempty"`
	EnvelopeID      string `json:"envelope_id,omitempty"`
	SignalID        string `json:"signal_id,omitempty"`
	RuleID          string `json:"rule_id,omitempty"`
	Escalation      string `json:"escalation,omitempty"`
	RegistryVersion string `json:"registry_version,omitempty"`

	// MinScore keeps records with a structural risk score at or above it.
	MinScore *float64 `json:"min_score,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting: "recorded_at", "structural_risk_score" or "escalation";
	// order "asc" or "desc".
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage defines the interface for ledger backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// StoreBatch persists records atomically where the backend allows it.
	StoreBatch(ctx context.Context, records []*Record) error

	// Query retrieves records matching the filters.
	// Returns an empty slice if nothing matches.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream streams matching records. Both channels are closed when the
	// query completes; errCh carries at most one error.
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of matching records. Pagination is ignored.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records and returns how many were removed.
	// Pagination is ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes records in some format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
