package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-training/oauth2-implicit/pkg/core"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS oauth_tokens (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore implements the core.TokenStore interface on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) a SQLite token database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Set upserts a value.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return core.ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_tokens (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		prefixed(key), value, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save token to sqlite: %w", err)
	}
	return nil
}

// Get retrieves a value.
// It returns core.ErrNotFound if the key does not exist.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", core.ErrEmptyKey
	}
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM oauth_tokens WHERE key = ?`, prefixed(key),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", core.ErrNotFound
		}
		return "", fmt.Errorf("failed to get token from sqlite: %w", err)
	}
	return value, nil
}

// Remove deletes a key. Removing a missing key is not an error.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return core.ErrEmptyKey
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE key = ?`, prefixed(key)); err != nil {
		return fmt.Errorf("failed to delete token from sqlite: %w", err)
	}
	return nil
}

// Keys returns every key under the storage prefix, without the prefix, in sorted order.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM oauth_tokens WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(core.StoragePrefix), core.StoragePrefix,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens in sqlite: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan token key: %w", err)
		}
		if key, ok := unprefixed(k); ok {
			keys = append(keys, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate token keys: %w", err)
	}
	return keys, nil
}

// Clear deletes every key under the storage prefix.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM oauth_tokens WHERE substr(key, 1, ?) = ?`,
		len(core.StoragePrefix), core.StoragePrefix,
	)
	if err != nil {
		return fmt.Errorf("failed to clear tokens from sqlite: %w", err)
	}
	return nil
}
