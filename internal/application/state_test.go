package application

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/deepshift/mineshift/internal/persistence"
	"github.com/deepshift/mineshift/internal/persistence/memory"
)

func TestSnapshotWriterTracksPendingKeys(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	writer := newSnapshotWriter(persistence.NewLocalStore(backend, nil, nil))
	ctx := context.Background()

	backend.Fail(memory.OpPut, KeyShifts, errors.New("disk full"))
	err := writer.write(ctx,
		persistence.Entry{Key: KeyShifts, Value: []ShiftRecord{}},
		persistence.Entry{Key: KeyIncidents, Value: []IncidentRecord{}},
	)
	if !errors.Is(err, ErrNotSaved) {
		t.Fatalf("expected ErrNotSaved, got %v", err)
	}
	if got := writer.pendingKeys(); !slices.Equal(got, []string{KeyShifts}) {
		t.Fatalf("expected only shifts pending, got %v", got)
	}

	backend.Heal()
	if err := writer.write(ctx, persistence.Entry{Key: KeyShifts, Value: []ShiftRecord{}}); err != nil {
		t.Fatalf("expected write to succeed after heal, got %v", err)
	}
	if got := writer.pendingKeys(); len(got) != 0 {
		t.Fatalf("expected no pending keys, got %v", got)
	}
}

func TestSnapshotWriterNilValueRemoves(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	writer := newSnapshotWriter(persistence.NewLocalStore(backend, nil, nil))
	ctx := context.Background()

	if err := writer.write(ctx, persistence.Entry{Key: KeyDraftShift, Value: ShiftDraft{}}); err != nil {
		t.Fatalf("write returned error: %v", err)
	}
	if err := writer.write(ctx, persistence.Entry{Key: KeyDraftShift}); err != nil {
		t.Fatalf("remove returned error: %v", err)
	}
	if _, ok := backend.Raw(KeyDraftShift); ok {
		t.Fatalf("expected draft key to be removed")
	}
}

func TestTransitionTables(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to ShiftStatus }{
		{ShiftStatusDraft, ShiftStatusSubmitted},
		{ShiftStatusSubmitted, ShiftStatusReopened},
		{ShiftStatusSubmitted, ShiftStatusAcknowledged},
		{ShiftStatusReopened, ShiftStatusSubmitted},
	}
	for _, tt := range allowed {
		if !canTransition(shiftTransitions, tt.from, tt.to) {
			t.Fatalf("expected %s -> %s to be allowed", tt.from, tt.to)
		}
	}
	denied := []struct{ from, to ShiftStatus }{
		{ShiftStatusDraft, ShiftStatusAcknowledged},
		{ShiftStatusAcknowledged, ShiftStatusReopened},
		{ShiftStatusSubmitted, ShiftStatusSubmitted},
	}
	for _, tt := range denied {
		if canTransition(shiftTransitions, tt.from, tt.to) {
			t.Fatalf("expected %s -> %s to be rejected", tt.from, tt.to)
		}
	}
	if !canTransition(reportTransitions, ReportStatusDraft, ReportStatusPending) ||
		canTransition(reportTransitions, ReportStatusAcknowledged, ReportStatusPending) {
		t.Fatalf("unexpected report transition table")
	}
}
