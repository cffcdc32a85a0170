// Package query validates ledger queries and fills in their defaults.
package query

import (
	"fmt"

	"sta-hq/verdict/pkg/escalation"
	"sta-hq/verdict/pkg/evidence"
)

const (
	// DefaultLimit is the number of records returned when Limit is zero.
	DefaultLimit = 100

	// MaxLimit is the largest Limit accepted.
	MaxLimit = 10000

	// DefaultSortBy and DefaultSortOrder put the newest records first.
	DefaultSortBy    = "recorded_at"
	DefaultSortOrder = "desc"
)

// ValidSortFields contains the fields that can be used for sorting.
var ValidSortFields = map[string]bool{
	"recorded_at":           true,
	"structural_risk_score": true,
	"escalation":            true,
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// Validate validates a query and returns a *evidence.QueryError if any
// parameter is invalid.
func Validate(q *evidence.Query) error {
	if q.Limit < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	if q.SortBy != "" && !ValidSortFields[q.SortBy] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}
	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return evidence.NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}

	if q.Escalation != "" {
		level, err := escalation.ParseLevel(q.Escalation)
		if err != nil {
			return evidence.NewQueryError(q, err)
		}
		if level.String() != q.Escalation {
			return evidence.NewQueryError(q, fmt.Errorf("escalation must use the canonical name %q", level.String()))
		}
	}

	return nil
}

// ApplyDefaults applies default values to a query.
func ApplyDefaults(q *evidence.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = DefaultSortBy
	}
	if q.SortOrder == "" {
		q.SortOrder = DefaultSortOrder
	}
}
