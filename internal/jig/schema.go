package jig

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS jigs (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		creator_id TEXT NOT NULL,
		author_id TEXT NOT NULL,
		cover_id TEXT NOT NULL,
		ending_id TEXT NOT NULL,
		publish_at TEXT,
		live INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jig_modules (
		jig_id TEXT NOT NULL REFERENCES jigs(id) ON DELETE CASCADE,
		module_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		kind TEXT NOT NULL,
		complete INTEGER NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (jig_id, module_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jig_modules_order ON jig_modules (jig_id, idx)`,
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}
	}
	return nil
}
