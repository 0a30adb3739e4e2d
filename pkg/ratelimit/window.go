package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultWindow = 60 * time.Second
	DefaultLimit  = 15
)

// SlidingWindow bounds how many attempts may happen within a trailing window.
// Attempts older than the window are discarded on every check.
type SlidingWindow struct {
	mu       sync.Mutex
	window   time.Duration
	limit    int
	now      func() time.Time
	attempts []time.Time
}

type Option func(*SlidingWindow)

func WithClock(now func() time.Time) Option {
	return func(w *SlidingWindow) {
		if now != nil {
			w.now = now
		}
	}
}

// New builds a limiter. Non-positive values fall back to the defaults.
func New(window time.Duration, limit int, opts ...Option) *SlidingWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	w := &SlidingWindow{window: window, limit: limit, now: time.Now}
	for _, o := range opts {
		o(w)
	}
	return w
}

// IsLimited reports whether the window is full.
func (w *SlidingWindow) IsLimited() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked()
	return len(w.attempts) >= w.limit
}

func (w *SlidingWindow) RecordAttempt() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked()
	w.attempts = append(w.attempts, w.now())
}

// Count returns the attempts currently inside the window.
func (w *SlidingWindow) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked()
	return len(w.attempts)
}

// Reset empties the window.
func (w *SlidingWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts = nil
}

func (w *SlidingWindow) pruneLocked() {
	cutoff := w.now().Add(-w.window)
	keep := 0
	for keep < len(w.attempts) && !w.attempts[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		w.attempts = append(w.attempts[:0], w.attempts[keep:]...)
	}
}
