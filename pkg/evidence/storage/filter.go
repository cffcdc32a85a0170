package storage

import (
	"cmp"
	"slices"

	"sta-hq/verdict/pkg/escalation"
	"sta-hq/verdict/pkg/evidence"
)

const streamBuffer = 100

// matches applies the filter part of q to r. Pagination and sorting are
// handled by the caller.
func matches(r *evidence.Record, q *evidence.Query) bool {
	if q.StartTime != nil && r.RecordedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.RecordedAt.After(*q.EndTime) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.EnvelopeID != "" && r.EnvelopeID != q.EnvelopeID {
		return false
	}
	if q.SignalID != "" && r.SignalID != q.SignalID {
		return false
	}
	if q.RuleID != "" && !r.HasRule(q.RuleID) {
		return false
	}
	if q.Escalation != "" && r.Escalation != q.Escalation {
		return false
	}
	if q.RegistryVersion != "" && r.RegistryVersion != q.RegistryVersion {
		return false
	}
	if q.MinScore != nil && r.StructuralRiskScore < *q.MinScore {
		return false
	}
	return true
}

// sortRecords orders records the same way the SQLite backend does: by the
// requested field, then by recorded time, then by id.
func sortRecords(records []*evidence.Record, sortBy, order string) {
	slices.SortStableFunc(records, func(a, b *evidence.Record) int {
		var c int
		switch sortBy {
		case "structural_risk_score":
			c = cmp.Compare(a.StructuralRiskScore, b.StructuralRiskScore)
		case "escalation":
			c = cmp.Compare(rank(a.Escalation), rank(b.Escalation))
		}
		if c == 0 {
			c = a.RecordedAt.Compare(b.RecordedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if order == "desc" {
			return -c
		}
		return c
	})
}

// rank maps a level name to its ordinal; unknown names sort first.
func rank(level string) int {
	l, err := escalation.ParseLevel(level)
	if err != nil {
		return -1
	}
	return int(l)
}
