package database

import (
	"context"
	"database/sql"
	"fmt"
)

// The unique index on submissions(user_id, test_id) is the durable arbiter of
// "this candidate already finished this test".
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'quiz_user',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tests (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
		challenges JSONB NOT NULL,
		created_by TEXT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		test_id TEXT NOT NULL REFERENCES tests(id),
		trigger TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ NOT NULL,
		duration_minutes INTEGER NOT NULL,
		earned_points INTEGER NOT NULL,
		total_points INTEGER NOT NULL,
		attempted_count INTEGER NOT NULL,
		challenges JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS submissions_user_test_uidx ON submissions (user_id, test_id)`,
	`CREATE INDEX IF NOT EXISTS submissions_test_idx ON submissions (test_id, earned_points DESC, created_at ASC)`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return tx.Commit()
}
