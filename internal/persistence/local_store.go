package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/deepshift/mineshift/internal/logging"
)

// KeyValueStore is the device-local substrate behind LocalStore.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Entry pairs a key with the value to be written under it.
type Entry struct {
	Key   string
	Value any
}

// LocalStore encodes domain values onto a KeyValueStore. Reads never fail:
// anything that cannot be produced is logged and reported as absent. Writes
// are logged on failure and returned wrapped in ErrNotSaved.
type LocalStore struct {
	kv     KeyValueStore
	codec  Codec
	logger *slog.Logger
}

// NewLocalStore wires a store over kv. A nil codec selects JSON.
func NewLocalStore(kv KeyValueStore, codec Codec, logger *slog.Logger) *LocalStore {
	if codec == nil {
		codec = JSONCodec{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStore{kv: kv, codec: codec, logger: logger}
}

func (s *LocalStore) loggerWith(ctx context.Context, operation, key string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = s.logger
	}
	pairs := []any{"component", "LocalStore", "operation", operation, "codec", s.codec.Name()}
	if key != "" {
		pairs = append(pairs, "key", key)
	}
	return logger.With(pairs...)
}

// Get decodes the value stored under key into dest and reports whether it
// was found and readable.
func (s *LocalStore) Get(ctx context.Context, key string, dest any) bool {
	if s == nil || s.kv == nil {
		return false
	}
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "Get", key).ErrorContext(ctx, "failed to read value", "error", err)
		}
		return false
	}
	if err := s.codec.Unmarshal(data, dest); err != nil {
		s.loggerWith(ctx, "Get", key).ErrorContext(ctx, "failed to decode value", "error", err)
		return false
	}
	return true
}

// Set encodes value and writes it under key.
func (s *LocalStore) Set(ctx context.Context, key string, value any) error {
	if s == nil || s.kv == nil {
		return fmt.Errorf("%w: store not configured", ErrNotSaved)
	}
	if err := s.put(ctx, key, value); err != nil {
		s.loggerWith(ctx, "Set", key).ErrorContext(ctx, "failed to persist value", "error", err)
		return fmt.Errorf("%w: %s: %w", ErrNotSaved, key, err)
	}
	return nil
}

// SetMany writes every entry in parallel. Each key is attempted regardless of
// the others; there is no transaction across keys.
func (s *LocalStore) SetMany(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if s == nil || s.kv == nil {
		return fmt.Errorf("%w: store not configured", ErrNotSaved)
	}

	var (
		mu     sync.Mutex
		failed WriteError
	)
	var g errgroup.Group
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			if err := s.put(ctx, entry.Key, entry.Value); err != nil {
				mu.Lock()
				failed.add(entry.Key, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed.Failures) == 0 {
		return nil
	}
	s.loggerWith(ctx, "SetMany", "").ErrorContext(ctx, "failed to persist values",
		"failed_keys", failed.Keys(),
		"attempted", len(entries),
	)
	return &failed
}

// Remove deletes key. Removing an absent key succeeds.
func (s *LocalStore) Remove(ctx context.Context, key string) error {
	if s == nil || s.kv == nil {
		return fmt.Errorf("%w: store not configured", ErrNotSaved)
	}
	if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		s.loggerWith(ctx, "Remove", key).ErrorContext(ctx, "failed to remove value", "error", err)
		return fmt.Errorf("%w: %s: %w", ErrNotSaved, key, err)
	}
	return nil
}

// Clear deletes every key in the substrate.
func (s *LocalStore) Clear(ctx context.Context) error {
	if s == nil || s.kv == nil {
		return fmt.Errorf("%w: store not configured", ErrNotSaved)
	}
	if err := s.kv.DeleteAll(ctx); err != nil {
		s.loggerWith(ctx, "Clear", "").ErrorContext(ctx, "failed to clear store", "error", err)
		return fmt.Errorf("%w: %w", ErrNotSaved, err)
	}
	return nil
}

// Keys lists the stored keys, or nil when the substrate cannot be read.
func (s *LocalStore) Keys(ctx context.Context) []string {
	if s == nil || s.kv == nil {
		return nil
	}
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		s.loggerWith(ctx, "Keys", "").ErrorContext(ctx, "failed to list keys", "error", err)
		return nil
	}
	return keys
}

// Close releases the substrate.
func (s *LocalStore) Close() error {
	if s == nil || s.kv == nil {
		return nil
	}
	return s.kv.Close()
}

func (s *LocalStore) put(ctx context.Context, key string, value any) error {
	data, err := s.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return s.kv.Put(ctx, key, data)
}

// Load reads key into a fresh T.
func Load[T any](ctx context.Context, store *LocalStore, key string) (T, bool) {
	var value T
	if !store.Get(ctx, key, &value) {
		var zero T
		return zero, false
	}
	return value, true
}
