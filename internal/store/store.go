// Package store is the durable key/value collaborator described in
// spec.md §6: an ordered mapping with transactional upsert/delete, backed
// by SQLite. Keys and values are opaque strings/bytes to everything above
// this package; the schema mirrors original_source/pychord/db.py exactly.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_store(
	key   TEXT PRIMARY KEY NOT NULL,
	value TEXT NOT NULL
);
`

// Store wraps a single SQLite connection holding one node's local KV shard.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite file at path and installs the
// schema. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	// The sqlite3 driver does not support concurrent writers across
	// connections; a single connection serializes access the same way the
	// original's single sqlite3 connection per process did.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.WriteSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteSchema idempotently installs the kv_store table.
func (s *Store) WriteSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: write schema: %w", err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM kv_store WHERE key = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: exists %q: %w", key, err)
	}
	return true, nil
}

// Get returns the value for key, or def if key is absent.
func (s *Store) Get(ctx context.Context, key string, def []byte) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %q: %w", key, err)
	}
	return []byte(value), nil
}

// GetAll returns every key/value pair currently stored.
func (s *Store) GetAll(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv_store`)
	if err != nil {
		return nil, fmt.Errorf("store: get all: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("store: get all: scan: %w", err)
		}
		out[k] = []byte(v)
	}
	return out, rows.Err()
}

// Count returns the number of keys stored, used by the status page.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_store`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Set upserts key/value in its own transaction.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.Transaction(ctx, func(tx *sql.Tx) error {
		return setTx(ctx, tx, key, value)
	})
}

// Remove deletes key in its own transaction. Removing an absent key is a
// no-op, matching DELETE's semantics.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.Transaction(ctx, func(tx *sql.Tx) error {
		return removeTx(ctx, tx, key)
	})
}

// SetBulk upserts every pair in m inside a single transaction, used for
// graceful-leave hand-off (spec.md §4.4).
func (s *Store) SetBulk(ctx context.Context, m map[string][]byte) error {
	return s.Transaction(ctx, func(tx *sql.Tx) error {
		for k, v := range m {
			if err := setTx(ctx, tx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func setTx(ctx context.Context, tx *sql.Tx, key string, value []byte) error {
	_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO kv_store(key, value) VALUES (?, ?)`, key, string(value))
	if err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	return nil
}

func removeTx(ctx context.Context, tx *sql.Tx, key string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: remove %q: %w", key, err)
	}
	return nil
}

// Transaction runs fn inside a scoped write transaction: commit on success,
// rollback on any error fn returns or panics with, matching
// pychord's transaction_wrapper contextmanager.
func (s *Store) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store: rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
