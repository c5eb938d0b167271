package auth

import (
	"sync"
	"time"
)

// AttemptLimiter allows at most max attempts per key within a sliding window.
// Keys whose attempts have all expired are swept at most once per window.
type AttemptLimiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	attempts  map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewAttemptLimiter(max int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		max:      max,
		window:   window,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow records an attempt for key and reports whether it is within the
// limit. Rejected attempts are not recorded.
func (l *AttemptLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}

	recent := l.recent(key, now)
	if len(recent) >= l.max {
		l.attempts[key] = recent
		return false
	}
	l.attempts[key] = append(recent, now)
	return true
}

func (l *AttemptLimiter) recent(key string, now time.Time) []time.Time {
	recent := l.attempts[key][:0]
	for _, at := range l.attempts[key] {
		if now.Sub(at) < l.window {
			recent = append(recent, at)
		}
	}
	return recent
}

// sweep drops every key without an attempt inside the window.
func (l *AttemptLimiter) sweep(now time.Time) {
	for key := range l.attempts {
		if recent := l.recent(key, now); len(recent) > 0 {
			l.attempts[key] = recent
		} else {
			delete(l.attempts, key)
		}
	}
	l.lastSweep = now
}

// Reset forgets all attempts for key.
func (l *AttemptLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}
