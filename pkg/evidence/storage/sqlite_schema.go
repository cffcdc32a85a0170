package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the verdict ledger. recorded_at holds Unix nanoseconds and
// escalation_rank the level ordinal so both sort numerically.
const Schema = `
CREATE TABLE IF NOT EXISTS verdicts (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    recorded_at INTEGER NOT NULL,

    envelope_id TEXT NOT NULL,
    signal_id TEXT NOT NULL,
    structural_risk_score REAL NOT NULL,

    escalation TEXT NOT NULL,
    escalation_rank INTEGER NOT NULL,
    score_level TEXT NOT NULL,
    floor_level TEXT NOT NULL,

    rule_ids TEXT NOT NULL,
    violation_count INTEGER NOT NULL,

    registry_version TEXT NOT NULL,
    pack_id TEXT NOT NULL,
    pack_version TEXT NOT NULL,

    result_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verdicts_recorded_at ON verdicts(recorded_at);
CREATE INDEX IF NOT EXISTS idx_verdicts_run_id ON verdicts(run_id);
CREATE INDEX IF NOT EXISTS idx_verdicts_envelope_id ON verdicts(envelope_id);
CREATE INDEX IF NOT EXISTS idx_verdicts_signal_id ON verdicts(signal_id);
CREATE INDEX IF NOT EXISTS idx_verdicts_escalation ON verdicts(escalation);
CREATE INDEX IF NOT EXISTS idx_verdicts_registry_version ON verdicts(registry_version);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const selectColumns = `id, run_id, recorded_at, envelope_id, signal_id, structural_risk_score,
    escalation, score_level, floor_level, rule_ids, violation_count,
    registry_version, pack_id, pack_version, result_hash`

const insertRecord = `
INSERT INTO verdicts (
    id, run_id, recorded_at, envelope_id, signal_id, structural_risk_score,
    escalation, escalation_rank, score_level, floor_level, rule_ids, violation_count,
    registry_version, pack_id, pack_version, result_hash
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
