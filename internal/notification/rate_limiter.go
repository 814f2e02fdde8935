package notification

import (
	"sync"
	"time"
)

// RateLimiter implements a sliding-window event limit.
type RateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	maxEvents int
	events    []time.Time
}

// NewRateLimiter creates a rate limiter allowing maxEvents per window.
func NewRateLimiter(window time.Duration, maxEvents int) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if maxEvents <= 0 {
		maxEvents = DefaultRateLimitMaxEvents
	}
	return &RateLimiter{
		window:    window,
		maxEvents: maxEvents,
	}
}

// Allow reports whether another event fits in the current window and
// records it if so.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	kept := r.events[:0]
	for _, t := range r.events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.events = kept

	if len(r.events) >= r.maxEvents {
		return false
	}
	r.events = append(r.events, now)
	return true
}
