package claim

import (
	"errors"
	"fmt"

	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/ledger"
)

// ErrorCode categorizes claim failures. Exactly one code is reported per
// rejected operation.
type ErrorCode string

const (
	// CodeBadOwner: the signer is not the owner of the claimed state.
	CodeBadOwner ErrorCode = "BAD_OWNER"

	// CodeAlreadyClaimedToday: the day equals the last claimed day.
	CodeAlreadyClaimedToday ErrorCode = "ALREADY_CLAIMED_TODAY"

	// CodeInvalidDay: the day precedes the last claimed day, or is negative.
	CodeInvalidDay ErrorCode = "INVALID_DAY"

	// CodeExpired: the attestation is past its validity window.
	CodeExpired ErrorCode = "EXPIRED"

	// CodeMissingAttestation: no companion operation vouches for the payload.
	CodeMissingAttestation ErrorCode = "MISSING_ATTESTATION"

	// CodeReplayRejected: the (user, nonce) pair was already consumed.
	CodeReplayRejected ErrorCode = "REPLAY_REJECTED"

	// CodeAlreadyInitialized: initialize found existing state.
	CodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"

	// CodeNotInitialized: no state exists for the claimed user.
	CodeNotInitialized ErrorCode = "NOT_INITIALIZED"

	// CodeDevModeDisabled: claim_dev on a deployment without dev mode.
	CodeDevModeDisabled ErrorCode = "DEV_MODE_DISABLED"

	// CodeNotAllowListed: claim_dev by a signer outside the allow-list.
	CodeNotAllowListed ErrorCode = "NOT_ALLOW_LISTED"

	// CodeInvalidInstruction: operation data does not decode.
	CodeInvalidInstruction ErrorCode = "INVALID_INSTRUCTION"
)

// ClaimError is the error every rejected claim operation returns.
type ClaimError struct {
	Code ErrorCode
	User ir.Pubkey
	Err  error
}

// Error implements the error interface.
func (e *ClaimError) Error() string {
	if e.User.IsZero() {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v (user=%s)", e.Code, e.Err, e.User)
}

// Unwrap exposes the underlying cause.
func (e *ClaimError) Unwrap() error { return e.Err }

// ErrorCode exposes the code to the batch log.
func (e *ClaimError) ErrorCode() string { return string(e.Code) }

func fail(code ErrorCode, user ir.Pubkey, err error) *ClaimError {
	return &ClaimError{Code: code, User: user, Err: err}
}

func failf(code ErrorCode, user ir.Pubkey, format string, args ...any) *ClaimError {
	return fail(code, user, fmt.Errorf(format, args...))
}

// IsCode reports whether err is a ClaimError with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	var ce *ClaimError
	return errors.As(err, &ce) && ce.Code == code
}

// CodeOf returns the code carried by err: a claim code, a ledger runtime
// code, "" for nil, or ledger.CodeInternal.
func CodeOf(err error) string {
	return ledger.CodeOf(err)
}
