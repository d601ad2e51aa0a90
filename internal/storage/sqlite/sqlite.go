// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/famscrap/scrapbill/internal/models"
	"github.com/famscrap/scrapbill/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
//
// All mutating operations hold mu so that numbering reads, header inserts
// and line inserts appear atomic to concurrent writers. Readers rely on
// transaction boundaries, not the mutex.
type SQLiteStore struct {
	db      *sql.DB
	billTag string

	mu sync.Mutex // serializes mutators
}

// New creates a new SQLiteStore with the given database path and bill-number
// tag (e.g. "FAM"). It creates the parent directories and runs migrations
// automatically.
func New(dbPath, billTag string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w: %w", models.ErrPersistence, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w: %w", models.ErrPersistence, err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w: %w", models.ErrPersistence, err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w: %w", models.ErrPersistence, err)
	}

	return &SQLiteStore{db: db, billTag: billTag}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// persistErr wraps a driver error so callers can classify it with
// errors.Is(err, models.ErrPersistence).
func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrPersistence, err)
}

// formatTime stores timestamps as RFC 3339 UTC strings.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
