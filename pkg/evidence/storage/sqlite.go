package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"sta-hq/verdict/pkg/config"
	"sta-hq/verdict/pkg/evidence"
)

// SQLiteStorage implements evidence.Storage on a SQLite database using the
// pure Go modernc driver.
type SQLiteStorage struct {
	db     *sql.DB
	config config.SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens (or creates) the database at cfg.Path and applies
// the schema.
func NewSQLiteStorage(cfg *config.SQLiteConfig) (*SQLiteStorage, error) {
	c := config.SQLiteConfig{
		Path:         config.DefaultEvidenceSQLitePath,
		MaxOpenConns: config.DefaultEvidenceSQLiteMaxOpenConns,
		WALMode:      config.DefaultEvidenceSQLiteWALMode,
		BusyTimeout:  config.DefaultEvidenceSQLiteBusyTimeout,
	}
	if cfg != nil {
		c = *cfg
	}
	if c.MaxOpenConns < 1 {
		c.MaxOpenConns = 1
	}

	logger := slog.Default().With("component", "evidence.storage.sqlite")

	db, err := sql.Open("sqlite", dsn(c))
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxOpenConns)

	s := &SQLiteStorage{
		db:     db,
		config: c,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", c.Path,
		"wal_mode", c.WALMode,
		"max_open_conns", c.MaxOpenConns,
	)

	return s, nil
}

// dsn carries the pragmas so that every pooled connection gets them.
func dsn(c config.SQLiteConfig) string {
	params := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", c.BusyTimeout.Milliseconds()),
		"_pragma=synchronous(NORMAL)",
	}
	if c.WALMode {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	return c.Path + "?" + strings.Join(params, "&")
}

func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return evidence.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return evidence.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return evidence.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists a record.
func (s *SQLiteStorage) Store(ctx context.Context, record *evidence.Record) error {
	args, err := insertArgs(record)
	if err != nil {
		return evidence.NewStorageError("sqlite", "store", err)
	}
	if _, err := s.db.ExecContext(ctx, insertRecord, args...); err != nil {
		return evidence.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// StoreBatch persists records in one transaction.
func (s *SQLiteStorage) StoreBatch(ctx context.Context, records []*evidence.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return evidence.NewStorageError("sqlite", "store_batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return evidence.NewStorageError("sqlite", "store_batch", err)
	}
	defer stmt.Close()

	for _, r := range records {
		args, err := insertArgs(r)
		if err != nil {
			return evidence.NewStorageError("sqlite", "store_batch", err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return evidence.NewStorageError("sqlite", "store_batch", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return evidence.NewStorageError("sqlite", "store_batch", err)
	}
	return nil
}

// Query retrieves records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, q *evidence.Query) ([]*evidence.Record, error) {
	sqlQuery, args, err := s.selectQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*evidence.Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, evidence.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// QueryStream streams matching records over a channel.
func (s *SQLiteStorage) QueryStream(ctx context.Context, q *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	sqlQuery, args, err := s.selectQuery(q)
	if err != nil {
		return nil, nil, err
	}

	recordsCh := make(chan *evidence.Record, streamBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRow(rows)
			if err != nil {
				errCh <- evidence.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, q *evidence.Query) (int64, error) {
	where, args := buildWhereClause(q)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM verdicts"+where, args...).Scan(&count)
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *SQLiteStorage) Delete(ctx context.Context, q *evidence.Query) (int64, error) {
	where, args := buildWhereClause(q)

	result, err := s.db.ExecContext(ctx, "DELETE FROM verdicts"+where, args...)
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close releases the database handle.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// sortColumns maps query sort fields to columns. Only these are ever
// interpolated into SQL.
var sortColumns = map[string]string{
	"recorded_at":           "recorded_at",
	"structural_risk_score": "structural_risk_score",
	"escalation":            "escalation_rank",
}

func (s *SQLiteStorage) selectQuery(q *evidence.Query) (string, []any, error) {
	q, err := prepare(q)
	if err != nil {
		return "", nil, err
	}

	where, args := buildWhereClause(q)
	order := "ASC"
	if q.SortOrder == "desc" {
		order = "DESC"
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selectColumns)
	b.WriteString(" FROM verdicts")
	b.WriteString(where)
	fmt.Fprintf(&b, " ORDER BY %s %s, recorded_at %s, id %s", sortColumns[q.SortBy], order, order, order)
	fmt.Fprintf(&b, " LIMIT %d OFFSET %d", q.Limit, q.Offset)
	return b.String(), args, nil
}

// buildWhereClause returns " WHERE ..." (or "") and its arguments.
func buildWhereClause(q *evidence.Query) (string, []any) {
	if q == nil {
		return "", nil
	}

	var conditions []string
	var args []any

	if q.StartTime != nil {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		conditions = append(conditions, "recorded_at <= ?")
		args = append(args, q.EndTime.UnixNano())
	}

	equal := []struct {
		column string
		value  string
	}{
		{"run_id", q.RunID},
		{"envelope_id", q.EnvelopeID},
		{"signal_id", q.SignalID},
		{"escalation", q.Escalation},
		{"registry_version", q.RegistryVersion},
	}
	for _, f := range equal {
		if f.value != "" {
			conditions = append(conditions, f.column+" = ?")
			args = append(args, f.value)
		}
	}

	if q.RuleID != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM json_each(verdicts.rule_ids) WHERE json_each.value = ?)")
		args = append(args, q.RuleID)
	}
	if q.MinScore != nil {
		conditions = append(conditions, "structural_risk_score >= ?")
		args = append(args, *q.MinScore)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func insertArgs(r *evidence.Record) ([]any, error) {
	ruleIDs := r.RuleIDs
	if ruleIDs == nil {
		ruleIDs = []string{}
	}
	encoded, err := json.Marshal(ruleIDs)
	if err != nil {
		return nil, fmt.Errorf("encode rule ids: %w", err)
	}

	return []any{
		r.ID, r.RunID, r.RecordedAt.UnixNano(),
		r.EnvelopeID, r.SignalID, r.StructuralRiskScore,
		r.Escalation, rank(r.Escalation), r.ScoreLevel, r.FloorLevel,
		string(encoded), r.ViolationCount,
		r.RegistryVersion, r.PackID, r.PackVersion,
		r.ResultHash,
	}, nil
}

func scanRow(rows *sql.Rows) (*evidence.Record, error) {
	var r evidence.Record
	var recordedAt int64
	var ruleIDs string

	err := rows.Scan(
		&r.ID, &r.RunID, &recordedAt,
		&r.EnvelopeID, &r.SignalID, &r.StructuralRiskScore,
		&r.Escalation, &r.ScoreLevel, &r.FloorLevel,
		&ruleIDs, &r.ViolationCount,
		&r.RegistryVersion, &r.PackID, &r.PackVersion,
		&r.ResultHash,
	)
	if err != nil {
		return nil, err
	}

	r.RecordedAt = time.Unix(0, recordedAt).UTC()
	if err := json.Unmarshal([]byte(ruleIDs), &r.RuleIDs); err != nil {
		return nil, fmt.Errorf("decode rule ids for %s: %w", r.ID, err)
	}
	return &r, nil
}
