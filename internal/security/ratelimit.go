package security

import (
	"sync"
	"time"
)

// staleWindowSweep is how often idle client windows are discarded.
const staleWindowSweep = 5 * time.Minute

// RateLimitConfig configures a RateLimiter.
type RateLimitConfig struct {
	RequestsPerWindow int           // requests allowed per window
	WindowDuration    time.Duration // sliding window length
	BurstMax          int           // requests allowed within any one second
}

// RateLimiter is a sliding-window limiter keyed by client. Captures hold a
// browser page for seconds each, so on top of the per-window limit a
// one-second burst cap keeps spikes away from the browser pool.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientWindow
	limit    int
	window   time.Duration
	burstMax int
}

// clientWindow holds the request timestamps of one client inside the
// current window.
type clientWindow struct {
	requests []time.Time
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter and starts its stale-window sweeper.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		clients:  make(map[string]*clientWindow),
		limit:    config.RequestsPerWindow,
		window:   config.WindowDuration,
		burstMax: config.BurstMax,
	}

	go rl.sweepStale()

	return rl
}

// Allow records a request for key and reports whether it is within both
// the window limit and the burst limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w := rl.clients[key]
	if w == nil {
		w = &clientWindow{}
		rl.clients[key] = w
	}
	w.lastSeen = now

	windowCutoff := now.Add(-rl.window)
	burstCutoff := now.Add(-time.Second)

	valid := w.requests[:0]
	burst := 0
	for _, t := range w.requests {
		if !t.After(windowCutoff) {
			continue
		}
		valid = append(valid, t)
		if t.After(burstCutoff) {
			burst++
		}
	}
	w.requests = valid

	if len(w.requests) >= rl.limit || burst >= rl.burstMax {
		return false
	}

	w.requests = append(w.requests, now)
	return true
}

// Remaining returns how many requests key has left in the current window.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w := rl.clients[key]
	if w == nil {
		return rl.limit
	}

	cutoff := time.Now().Add(-rl.window)
	used := 0
	for _, t := range w.requests {
		if t.After(cutoff) {
			used++
		}
	}

	if used >= rl.limit {
		return 0
	}
	return rl.limit - used
}

// ResetAt returns when the oldest request of key leaves the window.
func (rl *RateLimiter) ResetAt(key string) time.Time {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w := rl.clients[key]
	if w == nil || len(w.requests) == 0 {
		return time.Now()
	}
	return w.requests[0].Add(rl.window)
}

// Reset forgets all requests recorded for key.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.clients, key)
}

// RateLimitInfo is the limiter state reported in response headers.
type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// GetInfo returns the limiter state for key.
func (rl *RateLimiter) GetInfo(key string) RateLimitInfo {
	return RateLimitInfo{
		Limit:     rl.limit,
		Remaining: rl.Remaining(key),
		ResetAt:   rl.ResetAt(key),
	}
}

// sweepStale drops windows for clients that have gone quiet.
func (rl *RateLimiter) sweepStale() {
	ticker := time.NewTicker(staleWindowSweep)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.window * 2)
		for key, w := range rl.clients {
			if w.lastSeen.Before(cutoff) {
				delete(rl.clients, key)
			}
		}
		rl.mu.Unlock()
	}
}
