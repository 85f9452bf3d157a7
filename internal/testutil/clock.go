package testutil

import (
	"sync"
	"time"
)

// FixedTime is a settable wall clock for tests.
//
// It satisfies ledger.TimeSource and oracle's clock, so expiry and day
// boundaries can be crossed without sleeping.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedTime creates a clock frozen at the given unix second.
func NewFixedTime(unix int64) *FixedTime {
	return &FixedTime{now: time.Unix(unix, 0).UTC()}
}

// Now returns the frozen time.
func (c *FixedTime) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to the given unix second. Going backwards is allowed.
func (c *FixedTime) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(unix, 0).UTC()
}

// Advance moves the clock forward by d.
func (c *FixedTime) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Unix returns the frozen time in unix seconds.
func (c *FixedTime) Unix() int64 {
	return c.Now().Unix()
}
