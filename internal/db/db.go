// Package db provides structured access and database migrations for the SQLite persistence layer.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:   db,
		path: dbPath,
	}, nil
}

// Path returns the sqlite file backing the connection.
func (db *DB) Path() string {
	return db.path
}

// Migrate runs database migrations
func (db *DB) Migrate() error {
	migrations := []string{
		// Replays
		`CREATE TABLE IF NOT EXISTS replays (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL DEFAULT '',
			started_at_ms INTEGER NOT NULL,
			finished_at_ms INTEGER NOT NULL DEFAULT 0,
			trace_ids TEXT NOT NULL DEFAULT '[]',
			created_at_ms INTEGER NOT NULL
		)`,
		// Timeline frames
		`CREATE TABLE IF NOT EXISTS replay_frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			replay_id TEXT NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			offset_ms INTEGER NOT NULL,
			kind TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (replay_id) REFERENCES replays(id) ON DELETE CASCADE
		)`,
		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_replays_project ON replays(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_replay_frames_replay_ts ON replay_frames(replay_id, timestamp_ms)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
