package testfixtures

import (
	"testing"
	"time"
)

func TestClockStartsAtReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceIsSeenThroughNowFunc(t *testing.T) {
	start := time.Date(2025, time.March, 31, 22, 30, 0, 0, time.UTC)
	clock := NewClock(start)
	now := clock.NowFunc()

	if got := clock.Advance(45 * time.Minute); !got.Equal(start.Add(45 * time.Minute)) {
		t.Fatalf("Advance returned %v", got)
	}
	if got := now(); !got.Equal(start.Add(45 * time.Minute)) {
		t.Fatalf("expected NowFunc to follow the clock, got %v", got)
	}
}

func TestClockTodayCrossesMidnight(t *testing.T) {
	clock := NewClock(time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC))
	if got := clock.Today(); got != "2025-03-31" {
		t.Fatalf("expected 2025-03-31, got %q", got)
	}

	clock.Advance(2 * time.Hour)
	if got := clock.Today(); got != "2025-04-01" {
		t.Fatalf("expected 2025-04-01 after midnight, got %q", got)
	}
}

func TestNilClockFallsBackToWallTime(t *testing.T) {
	var clock *Clock
	if clock.NowFunc()().IsZero() {
		t.Fatalf("expected wall time from a nil clock")
	}
}
