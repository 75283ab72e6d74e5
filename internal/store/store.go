// Package store persists the engine's long-lived state — saved database
// credentials, per-table generator specs, and the usage-statistics
// ledger — in an embedded SQLite database, per spec.md §6. Grounded on
// original_source/core/populate/config.py's ConfigDatabase for the CRUD
// shape and on modernc.org/sqlite's pure-Go driver the way other pack
// repos (ry256-slb, bencoepp-bib, johnwards-notspot) open local state.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store wraps the embedded config database at ~/.datasmith/config.db (or
// the platform user-data directory under application name "DataSmith").
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS db_creds (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL,
	host     TEXT NOT NULL,
	port     INTEGER NOT NULL,
	user     TEXT NOT NULL,
	password TEXT NOT NULL,
	dialect  TEXT NOT NULL,
	UNIQUE(name, host, port, user, dialect)
);

CREATE TABLE IF NOT EXISTS table_specs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	db_id         INTEGER NOT NULL REFERENCES db_creds(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	no_of_entries INTEGER NOT NULL,
	page_size     INTEGER NOT NULL DEFAULT 100,
	UNIQUE(db_id, name)
);

CREATE TABLE IF NOT EXISTS column_specs (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	table_id  INTEGER NOT NULL REFERENCES table_specs(id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	generator TEXT NOT NULL DEFAULT '',
	type      TEXT NOT NULL,
	"order"   INTEGER NOT NULL DEFAULT 0,
	UNIQUE(table_id, name)
);

CREATE TABLE IF NOT EXISTS usage_stats (
	db_id         INTEGER NOT NULL,
	table_name    TEXT NOT NULL,
	new_rows      INTEGER NOT NULL DEFAULT 0,
	last_accessed INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (db_id, table_name)
);

CREATE TABLE IF NOT EXISTS server_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DefaultPath returns ~/.datasmith/config.db, creating the parent
// directory's home-relative path is left to the caller (Open creates it).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".datasmith", "config.db"), nil
}

// Open opens (creating if absent) the SQLite config database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: creating config directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: pinging %q: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
