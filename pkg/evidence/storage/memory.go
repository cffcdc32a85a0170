package storage

import (
	"context"
	"slices"
	"sync"

	"sta-hq/verdict/pkg/evidence"
	"sta-hq/verdict/pkg/evidence/query"
)

// MemoryStorage implements evidence.Storage in process memory. Records are
// lost when the process exits; it backs tests and one-shot runs.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*evidence.Record
	closed  bool
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.Record) error {
	return s.StoreBatch(ctx, []*evidence.Record{record})
}

// StoreBatch persists copies of records.
func (s *MemoryStorage) StoreBatch(ctx context.Context, records []*evidence.Record) error {
	if err := ctx.Err(); err != nil {
		return evidence.NewStorageError("memory", "store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return evidence.NewStorageError("memory", "store", evidence.ErrClosed)
	}
	for _, r := range records {
		s.records = append(s.records, copyRecord(r))
	}
	return nil
}

// Query retrieves records matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, q *evidence.Query) ([]*evidence.Record, error) {
	q, err := prepare(q)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, evidence.NewStorageError("memory", "query", evidence.ErrClosed)
	}
	return s.selectLocked(q), nil
}

// QueryStream streams matching records over a channel.
func (s *MemoryStorage) QueryStream(ctx context.Context, q *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	records, err := s.Query(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	recordsCh := make(chan *evidence.Record, streamBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, r := range records {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- r:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, q *evidence.Query) (int64, error) {
	if q == nil {
		q = &evidence.Query{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, r := range s.records {
		if matches(r, q) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, q *evidence.Query) (int64, error) {
	if q == nil {
		q = &evidence.Query{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, evidence.NewStorageError("memory", "delete", evidence.ErrClosed)
	}

	before := len(s.records)
	s.records = slices.DeleteFunc(s.records, func(r *evidence.Record) bool {
		return matches(r, q)
	})
	return int64(before - len(s.records)), nil
}

// Close drops all records. Later calls fail with evidence.ErrClosed.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.closed = true
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

func (s *MemoryStorage) selectLocked(q *evidence.Query) []*evidence.Record {
	results := []*evidence.Record{}
	for _, r := range s.records {
		if matches(r, q) {
			results = append(results, copyRecord(r))
		}
	}
	sortRecords(results, q.SortBy, q.SortOrder)

	if q.Offset >= len(results) {
		return []*evidence.Record{}
	}
	results = results[q.Offset:]
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results
}

// prepare validates q and returns a copy with defaults applied.
func prepare(q *evidence.Query) (*evidence.Query, error) {
	if q == nil {
		q = &evidence.Query{}
	}
	if err := query.Validate(q); err != nil {
		return nil, err
	}
	prepared := *q
	query.ApplyDefaults(&prepared)
	return &prepared, nil
}

func copyRecord(r *evidence.Record) *evidence.Record {
	c := *r
	c.RuleIDs = slices.Clone(r.RuleIDs)
	return &c
}
