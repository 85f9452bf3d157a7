package oracle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/cavityproof/internal/ir"
)

func userN(i int) ir.Pubkey { return ir.Pubkey{byte(i), byte(i >> 8), 0xAB} }

func TestUserLimiter_DropsIdleUsers(t *testing.T) {
	l := newUserLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1})
	start := time.Unix(now, 0)

	for i := 0; i < 1000; i++ {
		assert.True(t, l.Allow(userN(i), start))
	}
	assert.Equal(t, 1000, l.Len())

	// A full refill takes a minute; past that every bucket is fresh again.
	later := start.Add(time.Minute + time.Second)
	assert.True(t, l.Allow(userN(5000), later))
	assert.Equal(t, 1, l.Len())
}

func TestUserLimiter_KeepsActiveUsers(t *testing.T) {
	l := newUserLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1})
	alice := userN(1)
	start := time.Unix(now, 0)

	assert.True(t, l.Allow(alice, start))
	assert.False(t, l.Allow(alice, start.Add(30*time.Second)))

	// The refused request kept alice's bucket alive past this sweep.
	assert.True(t, l.Allow(userN(2), start.Add(61*time.Second)))
	assert.Equal(t, 2, l.Len())
}

func TestUserLimiter_RefusesNewUsersWhenFull(t *testing.T) {
	l := newUserLimiter(RateLimit{RequestsPerMinute: 60, Burst: 1})
	l.max = 3
	start := time.Unix(now, 0)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(userN(i), start))
	}
	assert.False(t, l.Allow(userN(3), start), "table full of live buckets")
	assert.Equal(t, 3, l.Len())

	// Known users are still served.
	assert.True(t, l.Allow(userN(0), start.Add(time.Second)))

	// Once the others go idle there is room again.
	assert.True(t, l.Allow(userN(3), start.Add(1500*time.Millisecond)))
	assert.Equal(t, 2, l.Len())
}
