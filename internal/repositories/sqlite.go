package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/nowplaying/internal/shared"
)

// SQLiteKV implements [KV] on the kv_entries table, scoped to a single namespace.
type SQLiteKV struct {
	db        *sql.DB
	namespace string
}

// NewSQLiteKV creates a [SQLiteKV] for namespace. Migrations must already be applied.
func NewSQLiteKV(db *sql.DB, namespace string) *SQLiteKV {
	return &SQLiteKV{db: db, namespace: namespace}
}

// Get retrieves the value stored under key.
func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_entries WHERE namespace = ? AND key = ?`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, s.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", shared.ErrNotFound, s.namespace, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s/%s: %w", s.namespace, key, err)
	}

	return value, nil
}

// Set inserts or replaces the value stored under key.
func (s *SQLiteKV) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_entries (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, s.namespace, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", s.namespace, key, err)
	}

	return nil
}

// Delete removes key. Missing keys are ignored.
func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_entries WHERE namespace = ? AND key = ?`

	if _, err := s.db.ExecContext(ctx, query, s.namespace, key); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", s.namespace, key, err)
	}

	return nil
}
