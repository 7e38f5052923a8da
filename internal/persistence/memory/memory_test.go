package memory

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/deepshift/mineshift/internal/persistence"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	if _, err := store.Get(ctx, "worker/tasks"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	value := []byte(`[]`)
	if err := store.Put(ctx, "worker/tasks", value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value[0] = 'x'
	got, err := store.Get(ctx, "worker/tasks")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `[]` {
		t.Fatalf("expected stored copy to be unaffected by caller mutation, got %s", got)
	}

	if err := store.Put(ctx, "foreman/workers", []byte(`[]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	keys, _ := store.Keys(ctx)
	if !slices.Equal(keys, []string{"foreman/workers", "worker/tasks"}) {
		t.Fatalf("unexpected keys %v", keys)
	}
	if store.PutCount() != 2 {
		t.Fatalf("expected 2 puts, got %d", store.PutCount())
	}

	if err := store.Delete(ctx, "worker/tasks"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := store.Raw("worker/tasks"); ok {
		t.Fatalf("expected key to be removed")
	}
	if err := store.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if keys, _ := store.Keys(ctx); len(keys) != 0 {
		t.Fatalf("expected empty store, got %v", keys)
	}
}

func TestStoreFaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()
	busy := errors.New("busy")

	store.Fail(OpPut, "worker/tasks", busy)
	if err := store.Put(ctx, "worker/tasks", []byte(`[]`)); !errors.Is(err, busy) {
		t.Fatalf("expected injected fault, got %v", err)
	}
	if err := store.Put(ctx, "worker/remarks", []byte(`[]`)); err != nil {
		t.Fatalf("expected other keys to be unaffected, got %v", err)
	}

	store.Fail(OpGet, "", busy)
	if _, err := store.Get(ctx, "worker/remarks"); !errors.Is(err, busy) {
		t.Fatalf("expected wildcard fault, got %v", err)
	}

	store.Heal()
	if err := store.Put(ctx, "worker/tasks", []byte(`[]`)); err != nil {
		t.Fatalf("expected Heal to clear faults, got %v", err)
	}
	if store.PutCount() != 2 {
		t.Fatalf("expected failed puts not to be counted, got %d", store.PutCount())
	}
}
