// Package ratelimit provides in-process rate limiting for the API.
//
// Two strategies live here: Window is a fixed-window attempt counter used to
// protect the authentication endpoints, and KeyedRateLimiter is a per-key
// token bucket used as coarse protection for the whole API. Neither
// coordinates across server processes.
package ratelimit

import (
	"sync"
	"time"
)

// Verdict is the outcome of a single Attempt.
type Verdict struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// windowEntry tracks one key's attempt count within its current window.
type windowEntry struct {
	count   int
	resetAt time.Time
}

// Window is a keyed fixed-window attempt counter.
//
// The window resets unconditionally once its deadline passes; bursts at the
// window boundary are an accepted tradeoff of the fixed-window strategy.
// A periodic sweep reclaims expired entries so memory stays bounded under
// sustained unique-key churn.
type Window struct {
	mu      sync.Mutex
	entries map[string]*windowEntry

	done     chan struct{}
	stopOnce sync.Once
}

// NewWindow creates a fixed-window limiter and starts its sweep goroutine.
// sweepInterval controls how often expired windows are reclaimed.
func NewWindow(sweepInterval time.Duration) *Window {
	w := &Window{
		entries: make(map[string]*windowEntry),
		done:    make(chan struct{}),
	}

	go w.sweep(sweepInterval)

	return w
}

// Attempt records an attempt for key and reports whether it is allowed.
// The first attempt for a key (or the first after its window expired) opens
// a fresh window of the given duration. Once limit attempts have been
// recorded, further attempts are denied until ResetAt passes.
func (w *Window) Attempt(key string, limit int, window time.Duration) Verdict {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.entries[key]
	if !ok || entry.resetAt.Before(now) {
		// New window.
		entry = &windowEntry{count: 1, resetAt: now.Add(window)}
		w.entries[key] = entry
		return Verdict{Allowed: true, Remaining: limit - 1, ResetAt: entry.resetAt}
	}

	if entry.count >= limit {
		return Verdict{Allowed: false, Remaining: 0, ResetAt: entry.resetAt}
	}

	entry.count++
	return Verdict{
		Allowed:   true,
		Remaining: limit - entry.count,
		ResetAt:   entry.resetAt,
	}
}

// Stop shuts down the sweep goroutine.
func (w *Window) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

// sweep periodically removes expired windows.
func (w *Window) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			now := time.Now()
			w.mu.Lock()
			for key, entry := range w.entries {
				if entry.resetAt.Before(now) {
					delete(w.entries, key)
				}
			}
			w.mu.Unlock()
		}
	}
}
