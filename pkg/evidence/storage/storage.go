// Package storage provides the ledger backends: an in-memory store and a
// SQLite store on the pure Go modernc driver.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"sta-hq/verdict/pkg/config"
	"sta-hq/verdict/pkg/evidence"
)

// Backend names accepted in config.EvidenceConfig.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Durable reports whether records written to the backend selected by cfg
// outlive the process.
func Durable(cfg *config.EvidenceConfig) bool {
	return cfg.Backend != BackendMemory
}

// New opens the backend selected by cfg.Backend. For SQLite the parent
// directory of the database file is created if needed.
func New(cfg *config.EvidenceConfig) (evidence.Storage, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStorage(), nil
	case BackendSQLite, "":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, evidence.NewStorageError("sqlite", "open", err)
			}
		}
		return NewSQLiteStorage(&cfg.SQLite)
	default:
		return nil, fmt.Errorf("unknown evidence backend %q", cfg.Backend)
	}
}
