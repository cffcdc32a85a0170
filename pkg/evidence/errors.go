package evidence

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by backends used after Close.
	ErrClosed = errors.New("evidence storage closed")

	// ErrInvalidQuery matches every *QueryError.
	ErrInvalidQuery = errors.New("invalid evidence query")
)

// StorageError is a failed backend operation.
type StorageError struct {
	Backend   string // "memory" or "sqlite"
	Operation string // store, query, count, delete, ...
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("evidence %s %s: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// QueryError rejects a query before it reaches a backend.
type QueryError struct {
	Query *Query
	Cause error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInvalidQuery, e.Cause)
}

func (e *QueryError) Unwrap() []error { return []error{ErrInvalidQuery, e.Cause} }

// NewQueryError creates a QueryError for q.
func NewQueryError(q *Query, cause error) *QueryError {
	return &QueryError{Query: q, Cause: cause}
}

// RecorderError is a verdict that could not be turned into a record or
// written.
type RecorderError struct {
	EnvelopeID string
	Cause      error
}

func (e *RecorderError) Error() string {
	if e.EnvelopeID == "" {
		return fmt.Sprintf("record verdict: %v", e.Cause)
	}
	return fmt.Sprintf("record verdict for envelope %s: %v", e.EnvelopeID, e.Cause)
}

func (e *RecorderError) Unwrap() error { return e.Cause }

// NewRecorderError creates a RecorderError.
func NewRecorderError(envelopeID string, cause error) *RecorderError {
	return &RecorderError{EnvelopeID: envelopeID, Cause: cause}
}

// RetentionError is a failed pruning run.
type RetentionError struct {
	MaxAge string
	Cause  error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("prune records older than %s: %v", e.MaxAge, e.Cause)
}

func (e *RetentionError) Unwrap() error { return e.Cause }

// ExportError is a failed export of RecordCount records.
type ExportError struct {
	Format      string
	RecordCount int
	Cause       error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %d record(s) as %s: %v", e.RecordCount, e.Format, e.Cause)
}

func (e *ExportError) Unwrap() error { return e.Cause }

// NewExportError creates an ExportError.
func NewExportError(format string, recordCount int, cause error) *ExportError {
	return &ExportError{Format: format, RecordCount: recordCount, Cause: cause}
}
