// Package sqlite implements the device-local key-value substrate on SQLite
// through the pure Go modernc.org/sqlite driver. Every row carries a
// BLAKE2b-256 checksum of its value which is verified on read.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"

	"github.com/deepshift/mineshift/internal/persistence"
)

// Store is a persistence.KeyValueStore backed by a single SQLite table.
type Store struct {
	db    *sql.DB
	retry RetryConfig
	now   func() time.Time
}

var _ persistence.KeyValueStore = (*Store)(nil)

// Open connects to the database described by cfg and applies pending
// migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite configuration: %w", err)
	}
	if cfg.DSN != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	// In-memory databases vanish with their connection.
	if cfg.DSN == ":memory:" {
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	for _, pragma := range cfg.pragmas() {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if err := migrate(ctx, db, time.Now); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db, retry: cfg.Retry, now: time.Now}, nil
}

// Get implements persistence.KeyValueStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value    []byte
		checksum string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, checksum FROM kv_entries WHERE key = ?`, key,
	).Scan(&value, &checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: read %s: %w", key, err)
	}
	if checksumOf(value) != checksum {
		return nil, fmt.Errorf("%w: %s", persistence.ErrCorrupt, key)
	}
	return value, nil
}

// Put implements persistence.KeyValueStore.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	updatedAt := s.now().UTC().Format(time.RFC3339Nano)
	return withRetry(ctx, s.retry, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO kv_entries (key, value, checksum, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				checksum = excluded.checksum,
				updated_at = excluded.updated_at`,
			key, value, checksumOf(value), updatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: write %s: %w", key, err)
		}
		return nil
	})
}

// Delete implements persistence.KeyValueStore.
func (s *Store) Delete(ctx context.Context, key string) error {
	return withRetry(ctx, s.retry, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
			return fmt.Errorf("sqlite: delete %s: %w", key, err)
		}
		return nil
	})
}

// DeleteAll implements persistence.KeyValueStore.
func (s *Store) DeleteAll(ctx context.Context) error {
	return withRetry(ctx, s.retry, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries`); err != nil {
			return fmt.Errorf("sqlite: clear: %w", err)
		}
		return nil
	})
}

// Keys implements persistence.KeyValueStore.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv_entries ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("sqlite: scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close implements persistence.KeyValueStore.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func checksumOf(value []byte) string {
	sum := blake2b.Sum256(value)
	return hex.EncodeToString(sum[:])
}
