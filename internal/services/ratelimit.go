package services

import (
	"sync"
	"time"
)

// RateLimitResult is the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed           bool
	RemainingAttempts int
	RetryAfterSeconds int64
}

// RateLimitInfo describes a key's current limiter state, for the admin
// surface.
type RateLimitInfo struct {
	Attempts          int   `json:"attempts"`
	MaxAttempts       int   `json:"max_attempts"`
	LockedOut         bool  `json:"locked_out"`
	RetryAfterSeconds int64 `json:"retry_after_seconds,omitempty"`
}

type attemptEntry struct {
	mu           sync.Mutex
	count        int
	windowStart  time.Time
	lockoutUntil time.Time
}

// RateLimiter throttles PIN verification attempts per client key with a
// sliding window and a lockout. State lives in process memory: a restart
// clears all limits, which is acceptable, and the limiter is per-process by
// design. Map access is guarded by the outer RWMutex; check/record for one
// key are serialized by the entry's own mutex so a check-then-increment pair
// from the same key can never corrupt the counter.
type RateLimiter struct {
	mu      sync.RWMutex
	entries map[string]*attemptEntry

	maxAttempts int
	window      time.Duration
	lockout     time.Duration

	now func() time.Time
}

// NewRateLimiter creates a rate limiter with the given knobs.
func NewRateLimiter(maxAttempts int, window, lockout time.Duration) *RateLimiter {
	return &RateLimiter{
		entries:     make(map[string]*attemptEntry),
		maxAttempts: maxAttempts,
		window:      window,
		lockout:     lockout,
		now:         time.Now,
	}
}

func (l *RateLimiter) entry(key string) *attemptEntry {
	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[key]; ok {
		return e
	}
	e = &attemptEntry{windowStart: l.now()}
	l.entries[key] = e
	return e
}

// Check reports whether the key may make another attempt. It does not count
// an attempt; callers follow up with RecordAttempt.
func (l *RateLimiter) Check(key string) RateLimitResult {
	if key == "" {
		return RateLimitResult{Allowed: true, RemainingAttempts: l.maxAttempts}
	}

	e := l.entry(key)
	now := l.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lockoutUntil.IsZero() {
		if now.Before(e.lockoutUntil) {
			return RateLimitResult{RetryAfterSeconds: retryAfter(now, e.lockoutUntil)}
		}
		// Lockout expired: clean slate.
		e.lockoutUntil = time.Time{}
		e.count = 0
		e.windowStart = now
	}

	if now.Sub(e.windowStart) > l.window {
		e.count = 0
		e.windowStart = now
	}

	if e.count >= l.maxAttempts {
		e.lockoutUntil = now.Add(l.lockout)
		return RateLimitResult{RetryAfterSeconds: int64(l.lockout.Seconds())}
	}

	return RateLimitResult{Allowed: true, RemainingAttempts: l.maxAttempts - e.count}
}

// RecordAttempt records the outcome of a PIN verification attempt. Success
// resets the key's state entirely; failure increments the window counter.
func (l *RateLimiter) RecordAttempt(key string, successful bool) {
	if key == "" {
		return
	}

	e := l.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	if successful {
		e.count = 0
		e.windowStart = l.now()
		e.lockoutUntil = time.Time{}
		return
	}
	e.count++
}

// Clear drops all limiter state for a key.
func (l *RateLimiter) Clear(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Info returns the current limiter state for a key.
func (l *RateLimiter) Info(key string) RateLimitInfo {
	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()
	if !ok {
		return RateLimitInfo{MaxAttempts: l.maxAttempts}
	}

	now := l.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	info := RateLimitInfo{
		Attempts:    e.count,
		MaxAttempts: l.maxAttempts,
	}
	if !e.lockoutUntil.IsZero() && now.Before(e.lockoutUntil) {
		info.LockedOut = true
		info.RetryAfterSeconds = retryAfter(now, e.lockoutUntil)
	}
	return info
}

func retryAfter(now, until time.Time) int64 {
	secs := int64(until.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
