package oracle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/cavityproof/internal/ir"
)

// maxVisitors caps the tracked users. New users are refused while the table
// is full of unexpired buckets.
const maxVisitors = 100_000

// RateLimit is a per-user token bucket.
type RateLimit struct {
	RequestsPerMinute float64
	Burst             int
}

type visitor struct {
	limiter *rate.Limiter
	expires time.Time
}

// userLimiter hands out one token bucket per user. A bucket left alone long
// enough to refill completely is dropped; a fresh one behaves the same.
type userLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	max   int

	mu        sync.Mutex
	visitors  map[ir.Pubkey]*visitor
	nextSweep time.Time
}

func newUserLimiter(cfg RateLimit) *userLimiter {
	perSecond := cfg.RequestsPerMinute / 60.0
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &userLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idle:     time.Duration(float64(burst) / perSecond * float64(time.Second)),
		max:      maxVisitors,
		visitors: make(map[ir.Pubkey]*visitor),
	}
}

// Allow reports whether user may be served at now.
func (l *userLimiter) Allow(user ir.Pubkey, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !now.Before(l.nextSweep) {
		l.cleanupExpiredLocked(now)
		l.nextSweep = now.Add(l.idle)
	}

	v, ok := l.visitors[user]
	if !ok {
		if len(l.visitors) >= l.max {
			l.cleanupExpiredLocked(now)
		}
		if len(l.visitors) >= l.max {
			return false
		}
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[user] = v
	}
	v.expires = now.Add(l.idle)
	return v.limiter.AllowN(now, 1)
}

// Len returns the number of tracked users.
func (l *userLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// CRITICAL: caller holds l.mu.
func (l *userLimiter) cleanupExpiredLocked(now time.Time) {
	for user, v := range l.visitors {
		if now.After(v.expires) {
			delete(l.visitors, user)
		}
	}
}
