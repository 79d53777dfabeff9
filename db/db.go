// Package db provides the optional Postgres battle archive: connection
// helpers, idempotent schema migration, and the small data access functions
// used by the watcher, the command layer, and the status endpoint. The
// archive records every announced battle; the JSON state file remains the
// source of truth for poll state.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Connect opens a Postgres connection for the given DSN.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty dsn")
	}
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes for all required tables and indices.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS battles (
			id SERIAL PRIMARY KEY,
			tag TEXT NOT NULL,
			name TEXT,
			mode TEXT NOT NULL,
			outcome TEXT NOT NULL,
			score TEXT NOT NULL,
			trophy_change INTEGER,
			battle_time TIMESTAMPTZ NOT NULL,
			notified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (tag, battle_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_battles_tag_time ON battles(tag, battle_time DESC)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at TIMESTAMPTZ
		)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
