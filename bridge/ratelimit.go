package bridge

import (
	"sync"
	"time"
)

// rateLimiter is a per-connection sliding-window counter. Audio streaming at
// 20ms chunks produces 50 messages per second, so the default window leaves
// headroom for control traffic on top.
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	times  []time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, window: window}
}

func (r *rateLimiter) Allow() bool {
	return r.allowAt(time.Now())
}

func (r *rateLimiter) allowAt(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.window)
	kept := r.times[:0]
	for _, t := range r.times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.times = kept

	if len(r.times) >= r.limit {
		return false
	}
	r.times = append(r.times, now)
	return true
}
