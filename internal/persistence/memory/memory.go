// Package memory provides a process-local KeyValueStore. It backs tests and
// the in-memory CLI mode, and can be told to fail specific operations so the
// engines' not-saved paths can be exercised.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/deepshift/mineshift/internal/persistence"
)

// Op names a store operation for fault injection.
type Op string

const (
	OpGet       Op = "get"
	OpPut       Op = "put"
	OpDelete    Op = "delete"
	OpDeleteAll Op = "delete_all"
)

// Store keeps values in a map guarded by a RWMutex.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	faults map[faultKey]error
	puts   int
}

type faultKey struct {
	op  Op
	key string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		values: make(map[string][]byte),
		faults: make(map[faultKey]error),
	}
}

// Get implements persistence.KeyValueStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.faultLocked(OpGet, key); err != nil {
		return nil, err
	}
	value, ok := s.values[key]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return cloneBytes(value), nil
}

// Put implements persistence.KeyValueStore.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.faultLocked(OpPut, key); err != nil {
		return err
	}
	s.values[key] = cloneBytes(value)
	s.puts++
	return nil
}

// Delete implements persistence.KeyValueStore.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.faultLocked(OpDelete, key); err != nil {
		return err
	}
	delete(s.values, key)
	return nil
}

// DeleteAll implements persistence.KeyValueStore.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.faultLocked(OpDeleteAll, ""); err != nil {
		return err
	}
	s.values = make(map[string][]byte)
	return nil
}

// Keys implements persistence.KeyValueStore.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements persistence.KeyValueStore.
func (s *Store) Close() error {
	return nil
}

// Fail makes every subsequent op on key return err. An empty key matches
// every key.
func (s *Store) Fail(op Op, key string, err error) {
	s.mu.Lock()
	s.faults[faultKey{op: op, key: key}] = err
	s.mu.Unlock()
}

// Heal removes all injected faults.
func (s *Store) Heal() {
	s.mu.Lock()
	s.faults = make(map[faultKey]error)
	s.mu.Unlock()
}

// Raw returns the bytes stored under key.
func (s *Store) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return cloneBytes(value), ok
}

// SetRaw stores bytes under key without any encoding.
func (s *Store) SetRaw(key string, value []byte) {
	s.mu.Lock()
	s.values[key] = cloneBytes(value)
	s.mu.Unlock()
}

// PutCount reports how many successful puts the store has seen.
func (s *Store) PutCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}

func (s *Store) faultLocked(op Op, key string) error {
	if err, ok := s.faults[faultKey{op: op, key: key}]; ok {
		return err
	}
	if err, ok := s.faults[faultKey{op: op}]; ok {
		return err
	}
	return nil
}

func cloneBytes(value []byte) []byte {
	if value == nil {
		return nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out
}
