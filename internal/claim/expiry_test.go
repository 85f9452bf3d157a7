package claim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckExpiry(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt int64
		now       int64
		expired   bool
	}{
		{"future", 1_000, 999, false},
		{"boundary is valid", 1_000, 1_000, false},
		{"one second late", 999, 1_000, true},
		{"far past", math.MinInt64, 0, true},
		{"max", math.MaxInt64, math.MaxInt64, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckExpiry(tt.expiresAt, tt.now)
			if tt.expired {
				assert.ErrorIs(t, err, ErrExpired)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
