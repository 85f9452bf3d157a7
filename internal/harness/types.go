package harness

import (
	"fmt"

	"github.com/roach88/cavityproof/internal/claim"
	"github.com/roach88/cavityproof/internal/ir"
)

// Result contains the outcome of running a scenario.
type Result struct {
	// Pass is true if every step outcome and assertion matched.
	Pass bool

	// Trace is one event per step, in order.
	Trace []Event

	// Errors holds every mismatch. Empty when Pass is true.
	Errors []AssertionError
}

// NewResult creates a passing Result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []Event{},
		Errors: []AssertionError{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err AssertionError) {
	r.Pass = false
	r.Errors = append(r.Errors, err)
}

// Event is the observable effect of one step.
type Event struct {
	Step int
	Op   string
	User string
	Day  int64

	// Seq is the batch's log position. Zero for advance steps.
	Seq int64

	// Outcome is "ok" or the rejection code.
	Outcome string

	// State is the user's committed state after the step, if any.
	State *StateExpect

	// Now is the trusted clock after an advance step.
	Now int64
}

// ToIR converts the event to its canonical form. Fields that do not apply
// to the step are omitted.
func (e Event) ToIR() ir.IRObject {
	obj := ir.IRObject{
		"step": ir.IRInt(e.Step),
		"op":   ir.IRString(e.Op),
	}
	if e.Op == OpAdvance {
		obj["now"] = ir.IRInt(e.Now)
		return obj
	}
	obj["user"] = ir.IRString(e.User)
	obj["seq"] = ir.IRInt(e.Seq)
	obj["outcome"] = ir.IRString(e.Outcome)
	if e.Op != OpInitUser {
		obj["day"] = ir.IRInt(e.Day)
	}
	if e.State != nil {
		obj["state"] = e.State.ToIR()
	}
	return obj
}

// ToIR converts the state to its canonical form.
func (s StateExpect) ToIR() ir.IRObject {
	return ir.IRObject{
		"streak":           ir.IRInt(s.Streak),
		"last_day_claimed": ir.IRInt(s.LastDayClaimed),
		"total_claims":     ir.IRInt(s.TotalClaims),
	}
}

func stateOf(s claim.UserState) *StateExpect {
	return &StateExpect{
		Streak:         s.Streak,
		LastDayClaimed: s.LastDayClaimed,
		TotalClaims:    s.TotalClaims,
	}
}

// AssertionError describes a step or assertion that did not match.
type AssertionError struct {
	// Type is the assertion type, or "step" for an outcome mismatch.
	Type string

	Expected string
	Actual   string

	// Step is the step index for outcome mismatches, -1 otherwise.
	Step int
}

func (e AssertionError) Error() string {
	if e.Step >= 0 {
		return fmt.Sprintf("%s %d: expected %s, got %s", e.Type, e.Step, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}
