// Package store implements the SQLite-backed single source of truth for
// providers, repositories, resources, namespaces, the discovery cache, and
// recorded change events.
//
// All mutations are serialized through a single writer lock and run inside
// transactions; a failed transaction is fully rolled back and no partial row
// update is ever observable. Reads may run concurrently between writes.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tangentlab/switchyard/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// dbFileName is the primary store file under the data directory.
const dbFileName = "switchyard.db"

// timeFormat is the canonical timestamp encoding for all TEXT columns.
const timeFormat = time.RFC3339Nano

// Store is the authoritative database handle. It is passed explicitly to
// every component that needs it; the write mutex is a field of the handle,
// never ambient process state.
type Store struct {
	mu   sync.RWMutex
	open bool
	db   *sql.DB
	cfg  types.Config
}

// Open creates the data directory if needed, opens (or creates) the SQLite
// database, and applies the schema.
func Open(cfg types.Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single logical connection: the writer lock serializes mutations, so
	// more connections would only add lock contention inside SQLite.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{open: true, db: db, cfg: cfg}, nil
}

// Config returns the configuration the store was opened with.
func (s *Store) Config() types.Config {
	return s.cfg
}

// Close releases the database handle. Close is idempotent; all operations
// after Close return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	s.open = false
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// write runs fn inside a transaction under the writer lock. Any error from
// fn rolls the transaction back in full.
func (s *Store) write(fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return types.ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// read runs fn under the reader lock.
func (s *Store) read(fn func(db *sql.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.open {
		return types.ErrStoreClosed
	}
	return fn(s.db)
}

// newID generates a UUID v7, falling back to v4 if v7 generation fails.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// marshalJSON encodes v for a TEXT column, returning "" for nil maps.
func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode column: %w", err)
	}
	return string(b), nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
