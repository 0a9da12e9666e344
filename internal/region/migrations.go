package region

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the region tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS regions (
		name       TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS entries (
		region     TEXT NOT NULL REFERENCES regions(name),
		pos        INTEGER NOT NULL,
		body       BLOB NOT NULL,
		consumed   INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		PRIMARY KEY (region, pos)
	)`,

	// Covers the live-head scan used by Read, Consume, and Len.
	`CREATE INDEX IF NOT EXISTS idx_entries_live ON entries(region, consumed, pos)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
