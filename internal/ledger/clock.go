package ledger

import "time"

// TimeSource is the host's trusted wall clock.
type TimeSource interface {
	Now() time.Time
}

// SystemTime reads the process clock.
type SystemTime struct{}

// Now returns time.Now().
func (SystemTime) Now() time.Time { return time.Now() }
