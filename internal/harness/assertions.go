package harness

import (
	"fmt"
	"strconv"

	"github.com/roach88/cavityproof/internal/claim"
	"github.com/roach88/cavityproof/internal/testutil"
)

// check evaluates one assertion against the committed ledger.
// Mismatches are recorded on result; the error means the check could not run.
func (r *runner) check(a Assertion, result *Result) error {
	switch a.Type {
	case AssertFinalState:
		return r.checkFinalState(a, result)
	case AssertNonceUsed:
		return r.checkNonceUsed(a, result)
	case AssertBatchCount:
		return r.checkBatchCount(a, result)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func (r *runner) checkFinalState(a Assertion, result *Result) error {
	want := formatState(*a.State)
	state, err := claim.ReadUserState(r.ctx, r.store, programKey.Public, UserKey(a.User).Public)
	if claim.IsCode(err, claim.CodeNotInitialized) {
		result.AddError(AssertionError{Type: a.Type, Expected: want, Actual: "no state for " + a.User, Step: -1})
		return nil
	}
	if err != nil {
		return err
	}
	if got := formatState(*stateOf(state)); got != want {
		result.AddError(AssertionError{Type: a.Type, Expected: want, Actual: got, Step: -1})
	}
	return nil
}

func (r *runner) checkNonceUsed(a Assertion, result *Result) error {
	nonce := testutil.NonceFromByte(byte(a.Nonce))
	used, err := claim.NonceUsed(r.ctx, r.store, programKey.Public, UserKey(a.User).Public, nonce)
	if err != nil {
		return err
	}
	if used != *a.Used {
		result.AddError(AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s nonce %d used=%t", a.User, a.Nonce, *a.Used),
			Actual:   fmt.Sprintf("used=%t", used),
			Step:     -1,
		})
	}
	return nil
}

func (r *runner) checkBatchCount(a Assertion, result *Result) error {
	records, err := r.store.ReadBatches(r.ctx, 0)
	if err != nil {
		return err
	}
	n := 0
	for _, rec := range records {
		if rec.Status == a.Status {
			n++
		}
	}
	if n != a.Count {
		result.AddError(AssertionError{
			Type:     a.Type,
			Expected: a.Status + "=" + strconv.Itoa(a.Count),
			Actual:   a.Status + "=" + strconv.Itoa(n),
			Step:     -1,
		})
	}
	return nil
}

func formatState(s StateExpect) string {
	return fmt.Sprintf("{streak:%d last_day_claimed:%d total_claims:%d}", s.Streak, s.LastDayClaimed, s.TotalClaims)
}
