package discussion

import (
	"testing"
	"time"
)

func TestScheduleFires(t *testing.T) {
	fired := make(chan struct{})
	Schedule(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for timer callback")
	}
}

func TestCancelPreventsCallback(t *testing.T) {
	fired := make(chan struct{}, 1)
	h := Schedule(20*time.Millisecond, func() { fired <- struct{}{} })
	h.Cancel()

	select {
	case <-fired:
		t.Fatalf("cancelled timer callback executed")
	case <-time.After(80 * time.Millisecond):
	}
	if h.Fired() {
		t.Fatalf("Fired() = true after Cancel")
	}
}

func TestCancelIdempotentAndSafeAfterFire(t *testing.T) {
	fired := make(chan struct{})
	h := Schedule(time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for timer callback")
	}

	// Must not panic or undo the fire.
	h.Cancel()
	h.Cancel()
	if !h.Fired() {
		t.Fatalf("Fired() = false after callback ran")
	}
}

func TestCancelNilHandle(t *testing.T) {
	var h *TimerHandle
	h.Cancel()
	if h.Fired() {
		t.Fatalf("nil handle reports fired")
	}
}
