package db

import "fmt"

// migrate runs all database migrations
func (db *DB) migrate() error {
	migrations := []string{
		migrationCreateCommitments,
		migrationCreateSessions,
		migrationCreateLocalUser,
		migrationCreateKV,
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

const migrationCreateCommitments = `
CREATE TABLE IF NOT EXISTS commitments (
    id TEXT PRIMARY KEY,
    alias TEXT NOT NULL,
    goal TEXT NOT NULL,
    duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
    status TEXT NOT NULL DEFAULT 'in_progress' CHECK (status IN ('in_progress', 'completed')),
    created_at TEXT NOT NULL,
    session_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_commitments_created ON commitments(created_at DESC);
`

const migrationCreateSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT,
    mode TEXT NOT NULL,
    goal TEXT NOT NULL,
    duration_minutes INTEGER NOT NULL,
    started_at TEXT NOT NULL,
    ended_at TEXT,
    focus_rating INTEGER CHECK (focus_rating BETWEEN 1 AND 5),
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, created_at DESC);
`

// local_user holds at most one row
const migrationCreateLocalUser = `
CREATE TABLE IF NOT EXISTS local_user (
    slot INTEGER PRIMARY KEY CHECK (slot = 1),
    id TEXT NOT NULL,
    email TEXT NOT NULL,
    display_name TEXT NOT NULL,
    avatar_color TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`

const migrationCreateKV = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
