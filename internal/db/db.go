// Package db provides SQLite persistence for the supplements tracker.
//
// The database is stored at ~/.supplements/supplements.db by default.
// Use Open() to connect and Init() to create the schema. All mutating
// operations append their audit record to the history table inside the
// same transaction as the mutation itself.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	name_display TEXT NOT NULL,
	name_generic TEXT,
	brand TEXT,
	category TEXT NOT NULL CHECK (category IN ('rx','otc','supplement')),
	form TEXT,
	route TEXT,
	notes TEXT,
	status TEXT NOT NULL CHECK (status IN ('active','paused','stopped')),
	start_date TEXT,
	stop_date TEXT,
	prescriber TEXT,
	pharmacy TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS doses (
	id TEXT PRIMARY KEY,
	item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	amount REAL,
	unit TEXT,
	time_am INTEGER NOT NULL DEFAULT 0,
	time_midday INTEGER NOT NULL DEFAULT 0,
	time_pm INTEGER NOT NULL DEFAULT 0,
	with_food INTEGER,
	instructions TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS history (
	id TEXT PRIMARY KEY,
	ts TEXT NOT NULL,
	item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	action TEXT NOT NULL CHECK (action IN ('create','update','status_change')),
	field TEXT,
	old_value TEXT,
	new_value TEXT,
	note TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_doses_item ON doses(item_id);
CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);
CREATE INDEX IF NOT EXISTS idx_history_item_ts ON history(item_id, ts);
`

// DB wraps a SQL database connection with tracker-specific operations.
// Single-process, single-writer: callers needing concurrent access must
// serialize externally.
type DB struct {
	*sql.DB
}

// DefaultPath returns the default database path (~/.supplements/supplements.db)
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".supplements", "supplements.db"), nil
}

// ExportsDir returns (and creates) the exports directory next to the database.
func ExportsDir(dbPath string) (string, error) {
	dir := filepath.Join(filepath.Dir(dbPath), "exports")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create exports directory: %w", err)
	}
	return dir, nil
}

// BackupsDir returns (and creates) the backups directory next to the database.
func BackupsDir(dbPath string) (string, error) {
	dir := filepath.Join(filepath.Dir(dbPath), "backups")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backups directory: %w", err)
	}
	return dir, nil
}

// Open opens or creates the database at the given path
func Open(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys so cascade deletes fire
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// Init creates the schema. Idempotent; safe to call on every process start.
func (db *DB) Init() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Timestamps are stored as RFC 3339 UTC strings truncated to whole seconds,
// so lexicographic order on the column equals chronological order.
// Start/stop dates are bare YYYY-MM-DD strings.
const dateLayout = "2006-01-02"

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func fmtTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
