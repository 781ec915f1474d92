// Package audit records every store mutation in a local SQLite database:
// which operation ran, which rid or prefix it touched, and a short detail
// string. The log is append-only and read back only for the recent-history
// views; losing it never affects store correctness.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Entry is one recorded mutation.
type Entry struct {
	ID        int64  `json:"id"`
	Operation string `json:"operation"`
	Subject   string `json:"subject"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Log is the append-only mutation log.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the audit database at path and runs migrations.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create data dir: %w", err)
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("audit: pragma %q: %w", p, err)
		}
	}
	l := &Log{db: db}
	if err := l.migrate(); err != nil {
		return nil, fmt.Errorf("audit: migration: %w", err)
	}
	return l, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS mutations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			operation  TEXT NOT NULL,
			subject    TEXT NOT NULL,
			detail     TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_mutations_subject ON mutations(subject);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record appends one mutation entry. Subject is the rid or document prefix
// the operation touched.
func (l *Log) Record(operation, subject, detail string) error {
	_, err := l.db.Exec(
		`INSERT INTO mutations (operation, subject, detail) VALUES (?, ?, ?)`,
		operation, subject, detail)
	if err != nil {
		return fmt.Errorf("audit: record %s %s: %w", operation, subject, err)
	}
	return nil
}

// Recent returns the latest entries, newest first. Limit clamps to 1.
func (l *Log) Recent(limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := l.db.Query(
		`SELECT id, operation, subject, detail, created_at
		 FROM mutations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Operation, &e.Subject, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// History returns entries for one subject, newest first.
func (l *Log) History(subject string, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := l.db.Query(
		`SELECT id, operation, subject, detail, created_at
		 FROM mutations WHERE subject = ? ORDER BY id DESC LIMIT ?`, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: history %s: %w", subject, err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Operation, &e.Subject, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
