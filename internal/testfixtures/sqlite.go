package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/deepshift/mineshift/internal/persistence"
	"github.com/deepshift/mineshift/internal/persistence/sqlite"
)

// SQLiteHarness provides a LocalStore backed by a temporary SQLite database
// for integration-style tests.
type SQLiteHarness struct {
	Path    string
	Backend *sqlite.Store
	Store   *persistence.LocalStore

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a database file under a temporary directory. A nil
// codec selects JSON. Callers may invoke Close, but the helper also
// registers a cleanup callback with tb.
func NewSQLiteHarness(tb testing.TB, codec persistence.Codec) *SQLiteHarness {
	tb.Helper()
	return OpenSQLiteHarness(tb, filepath.Join(tb.TempDir(), "mineshift.db"), codec)
}

// OpenSQLiteHarness opens the database at path, which lets a test reopen a
// file written by an earlier harness.
func OpenSQLiteHarness(tb testing.TB, path string, codec persistence.Codec) *SQLiteHarness {
	tb.Helper()

	backend, err := sqlite.Open(context.Background(), sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Path:    path,
		Backend: backend,
		Store:   persistence.NewLocalStore(backend, codec, nil),
		cleanup: func() {
			_ = backend.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
