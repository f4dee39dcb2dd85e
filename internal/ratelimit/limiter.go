// Package ratelimit enforces a per-IP request budget ahead of
// authorization, so repeated failed login attempts from one client can't
// be used to brute-force credentials.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerMinute matches the spec's 10-attempts-per-minute
// budget for authorization checks.
const DefaultRequestsPerMinute = 10

// Limiter hands out a golang.org/x/time/rate.Limiter per client key
// (normally the request's source IP), creating one lazily on first use.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rate     rate.Limit
	burst    int
}

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// New builds a Limiter allowing requestsPerMinute sustained requests per
// key, with a burst of the same size.
func New(requestsPerMinute int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*entry),
		rate:     rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    requestsPerMinute,
	}
}

// Allow reports whether a request from key is within budget, creating a
// fresh per-key limiter on first use.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastAccess = time.Now()
	return e.limiter
}

// Cleanup removes limiters that have been idle (at full token budget)
// since before cutoff, preventing unbounded growth of the key set across
// the lifetime of a long-running process.
func (l *Limiter) Cleanup(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.limiters {
		if e.lastAccess.Before(cutoff) && e.limiter.Tokens() >= float64(l.burst) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// RunCleanup periodically sweeps idle limiters until stop is closed.
func (l *Limiter) RunCleanup(interval, maxIdle time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.Cleanup(time.Now().Add(-maxIdle))
		}
	}
}
