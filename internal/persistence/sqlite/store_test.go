package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/deepshift/mineshift/internal/persistence"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nested", "mineshift.db")
	store, err := Open(context.Background(), DefaultConfig(path))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_PutGetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.Get(ctx, "worker/shifts"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent key, got %v", err)
	}

	if err := store.Put(ctx, "worker/shifts", []byte(`[{"id":"s-1"}]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "worker/shifts", []byte(`[{"id":"s-2"}]`)); err != nil {
		t.Fatalf("Put overwrite failed: %v", err)
	}
	got, err := store.Get(ctx, "worker/shifts")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `[{"id":"s-2"}]` {
		t.Fatalf("expected overwritten value, got %s", got)
	}

	if err := store.Put(ctx, "foreman/workers", []byte(`[]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if !slices.Equal(keys, []string{"foreman/workers", "worker/shifts"}) {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := store.Delete(ctx, "worker/shifts"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "worker/shifts"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if err := store.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	keys, err = store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no keys after DeleteAll, got %v", keys)
	}
}

func TestStore_DetectsCorruption(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Put(ctx, "worker/settings", []byte(`{"language":"en"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := store.db.ExecContext(ctx,
		`UPDATE kv_entries SET value = ? WHERE key = ?`, []byte(`{"language":"xx"}`), "worker/settings",
	); err != nil {
		t.Fatalf("tamper failed: %v", err)
	}

	if _, err := store.Get(ctx, "worker/settings"); !errors.Is(err, persistence.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mineshift.db")

	first, err := Open(ctx, DefaultConfig(path))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Put(ctx, "foreman/profile", []byte(`{"name":"R"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := Open(ctx, DefaultConfig(path))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	got, err := second.Get(ctx, "foreman/profile")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != `{"name":"R"}` {
		t.Fatalf("unexpected value after reopen: %s", got)
	}
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty dsn", mutate: func(c *Config) { c.DSN = "" }},
		{name: "negative timeout", mutate: func(c *Config) { c.BusyTimeout = -time.Second }},
		{name: "journal mode", mutate: func(c *Config) { c.JournalMode = "FAST" }},
		{name: "synchronous", mutate: func(c *Config) { c.Synchronous = "SOMETIMES" }},
		{name: "connections", mutate: func(c *Config) { c.MaxOpenConns = -1 }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig("/tmp/x.db")
			tc.mutate(&cfg)
			if err := cfg.validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	if err := InMemoryConfig().validate(); err != nil {
		t.Fatalf("expected in-memory config to be valid, got %v", err)
	}
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}

	t.Run("retries busy errors until success", func(t *testing.T) {
		attempts := 0
		err := withRetry(context.Background(), cfg, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected eventual success, got %v", err)
		}
		if attempts != 3 {
			t.Fatalf("expected 3 attempts, got %d", attempts)
		}
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		attempts := 0
		boom := errors.New("constraint failed")
		err := withRetry(context.Background(), cfg, func() error {
			attempts++
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected original error, got %v", err)
		}
		if attempts != 1 {
			t.Fatalf("expected a single attempt, got %d", attempts)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		err := withRetry(context.Background(), cfg, func() error {
			attempts++
			return errors.New("SQLITE_BUSY")
		})
		if err == nil {
			t.Fatalf("expected error after exhausting retries")
		}
		if attempts != 3 {
			t.Fatalf("expected 3 attempts, got %d", attempts)
		}
	})
}
