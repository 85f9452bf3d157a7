// Package streak is the pure state machine behind daily claims.
//
// A State is the triple (last_day_claimed, streak, total_claims). The
// initial state is (Never, 0, 0) and there is no terminal state. Counters
// saturate at math.MaxUint32 instead of wrapping.
package streak

import (
	"errors"
	"math"
)

// Never is the last_day_claimed sentinel for a user that has not claimed.
// Valid days are non-negative, so Never sorts below all of them.
const Never int64 = -1

var (
	// ErrAlreadyClaimedToday rejects a second claim for the same day.
	ErrAlreadyClaimedToday = errors.New("already claimed for this day")

	// ErrInvalidDay rejects days before the last claimed day, and negative days.
	ErrInvalidDay = errors.New("day is invalid (must be >= last claimed day)")
)

// State is the streak-relevant part of a user's record.
type State struct {
	LastDayClaimed int64
	Streak         uint32
	TotalClaims    uint32
}

// Initial returns the state of a freshly initialized user.
func Initial() State {
	return State{LastDayClaimed: Never}
}

// Next applies a claim for day to s. On error the returned state is s.
//
// Rules, in order:
//  1. day == last          -> ErrAlreadyClaimedToday
//  2. last == Never        -> streak = 1
//  3. day == last + 1      -> streak + 1
//  4. day >  last + 1      -> streak = 1
//  5. day <  last          -> ErrInvalidDay
func Next(s State, day int64) (State, error) {
	if day < 0 {
		return s, ErrInvalidDay
	}

	next := s
	switch {
	case day == s.LastDayClaimed:
		return s, ErrAlreadyClaimedToday
	case s.LastDayClaimed == Never:
		next.Streak = 1
	case day < s.LastDayClaimed:
		return s, ErrInvalidDay
	case day-1 == s.LastDayClaimed:
		next.Streak = saturatingInc(s.Streak)
	default:
		next.Streak = 1
	}

	next.LastDayClaimed = day
	next.TotalClaims = saturatingInc(s.TotalClaims)
	return next, nil
}

// Record counts a claim without day ordering or dedup. Used by dev-mode claims.
func Record(s State) State {
	s.TotalClaims = saturatingInc(s.TotalClaims)
	return s
}

func saturatingInc(v uint32) uint32 {
	if v == math.MaxUint32 {
		return v
	}
	return v + 1
}
