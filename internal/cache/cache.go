// Package cache is the durable key-value mirror of the form. Entries are
// grouped into namespaces; saving a namespace replaces its previous contents
// in full.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Namespaces used by the form and the reconciliation session.
const (
	NamespaceForm    = "form"
	NamespaceSession = "session"
)

// FileName is the cache database name inside the data directory.
const FileName = "form-cache.db"

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
);
`

// Store is a SQLite-backed key-value cache. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// Open opens or creates the cache database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Load returns every entry in namespace. A namespace that was never saved
// yields an empty map.
func (s *Store) Load(ctx context.Context, namespace string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM entries WHERE namespace = ?", namespace)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", namespace, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning %s entry: %w", namespace, err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Save overwrites namespace with entries in a single transaction. Keys not
// present in entries are removed.
func (s *Store) Save(ctx context.Context, namespace string, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE namespace = ?", namespace); err != nil {
		return fmt.Errorf("clearing %s: %w", namespace, err)
	}
	for k, v := range entries {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO entries (namespace, key, value) VALUES (?, ?, ?)", namespace, k, v); err != nil {
			return fmt.Errorf("writing %s/%s: %w", namespace, k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}
	return nil
}

// Clear removes every entry in every namespace.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Close releases the database. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var errClosed = errors.New("cache is closed")
