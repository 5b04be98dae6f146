package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		pcr_oi REAL NOT NULL,
		pcr_volume REAL NOT NULL,
		total_call_oi REAL NOT NULL,
		total_put_oi REAL NOT NULL,
		total_call_volume REAL NOT NULL,
		total_put_volume REAL NOT NULL,
		underlying_value REAL NOT NULL,
		strikes INTEGER NOT NULL,
		no_call_side INTEGER NOT NULL DEFAULT 0,
		fetched_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_symbol_time ON snapshots(symbol, fetched_at);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
