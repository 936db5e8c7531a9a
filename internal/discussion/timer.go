package discussion

import (
	"sync"
	"time"
)

// TimerHandle is a cancellable single-shot delayed continuation. Cancel is
// idempotent and safe after the timer already fired; a cancelled timer's
// callback never executes.
type TimerHandle struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
	fired     bool
}

// Schedule runs fn after delay unless the returned handle is cancelled first.
func Schedule(delay time.Duration, fn func()) *TimerHandle {
	h := &TimerHandle{}
	h.timer = time.AfterFunc(delay, func() {
		h.mu.Lock()
		if h.cancelled {
			h.mu.Unlock()
			return
		}
		h.fired = true
		h.mu.Unlock()
		fn()
	})
	return h
}

func (h *TimerHandle) Cancel() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return
	}
	h.cancelled = true
	if h.timer != nil {
		h.timer.Stop()
	}
}

// Fired reports whether the callback ran (or is about to run).
func (h *TimerHandle) Fired() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fired
}
