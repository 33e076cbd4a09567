package ratelimit

import (
	"testing"
	"time"
)

func TestAllowPerKeyBurst(t *testing.T) {
	l := New(1, 2)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("Burst of 2 should allow two requests")
	}
	if l.Allow("a") {
		t.Error("Third immediate request should be limited")
	}
	if !l.Allow("b") {
		t.Error("Other keys have their own bucket")
	}

	fixed = fixed.Add(time.Second)
	if !l.Allow("a") {
		t.Error("Bucket should refill after one second")
	}
}

func TestPruneDropsIdleBuckets(t *testing.T) {
	l := New(1, 1)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Allow("old")
	fixed = fixed.Add(10 * time.Minute)
	l.Allow("new")

	if remaining := l.Prune(5 * time.Minute); remaining != 1 {
		t.Errorf("Expected 1 bucket left, got %d", remaining)
	}
}
