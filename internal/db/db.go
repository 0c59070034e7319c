// Package db opens the gammad SQLite database and owns its schema.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection.
type DB struct {
	*sql.DB
}

var schema = []struct {
	name string
	ddl  string
}{
	{
		// Append-only transition history. One row per lifecycle event of an
		// animation job, so a job usually has a started and a final row.
		name: "transitions",
		ddl: `
			CREATE TABLE IF NOT EXISTS transitions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				event_type TEXT NOT NULL,
				controller TEXT NOT NULL,
				job_id TEXT,
				timestamp INTEGER NOT NULL,
				start_step INTEGER NOT NULL DEFAULT 0,
				end_step INTEGER NOT NULL DEFAULT 0,
				value INTEGER NOT NULL DEFAULT 0,
				payload TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_transitions_ts ON transitions(timestamp);
			CREATE INDEX IF NOT EXISTS idx_transitions_controller_ts ON transitions(controller, timestamp);
			CREATE INDEX IF NOT EXISTS idx_transitions_job ON transitions(job_id) WHERE job_id IS NOT NULL;
		`,
	},
	{
		// Small JSON documents keyed by (kind, id), e.g. the last applied steps.
		name: "resource_state",
		ddl: `
			CREATE TABLE IF NOT EXISTS resource_state (
				kind TEXT NOT NULL,
				id TEXT NOT NULL,
				payload TEXT NOT NULL,
				version INTEGER DEFAULT 1,
				updated_at INTEGER NOT NULL,
				PRIMARY KEY (kind, id)
			);
		`,
	},
}

// Open opens the database at path and creates missing tables. Use ":memory:"
// for a throwaway database.
func Open(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases visible to every query.
	conn.SetMaxOpenConns(1)

	for _, s := range schema {
		if _, err := conn.Exec(s.ddl); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create %s table: %w", s.name, err)
		}
	}

	return &DB{conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
