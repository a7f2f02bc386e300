// Package sqlite stores activities and accounts in a single SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                 TEXT PRIMARY KEY,
		name               TEXT NOT NULL,
		email              TEXT NOT NULL UNIQUE,
		password_hash      TEXT NOT NULL,
		refresh_token_hash TEXT NOT NULL DEFAULT '',
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id           TEXT PRIMARY KEY,
		owner_id     TEXT NOT NULL,
		name         TEXT NOT NULL,
		duration_min INTEGER NOT NULL CHECK (duration_min > 0),
		category     TEXT NOT NULL CHECK (category IN ('Work', 'Study', 'Exercise', 'Break', 'Other')),
		created_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_owner_created ON activities (owner_id, created_at DESC, id DESC)`,
}

// Open opens a SQLite database at path, creating parent directories as needed.
// Sets WAL mode and runs the schema.
func Open(path string) (*sql.DB, error) {
	if path != MemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == MemoryPath {
		// every new connection would see its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return db, nil
}
