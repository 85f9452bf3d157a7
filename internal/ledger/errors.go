package ledger

import (
	"errors"
	"fmt"
)

// RuntimeError represents a batch rejected by the host itself, before or
// around program execution.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// OpIndex is the offending operation, or -1 for batch-level errors.
	OpIndex int
}

// RuntimeErrorCode categorizes host errors.
type RuntimeErrorCode string

const (
	// ErrCodeEmptyBatch indicates a batch with no operations.
	ErrCodeEmptyBatch RuntimeErrorCode = "EMPTY_BATCH"

	// ErrCodeTooManyOps indicates a batch above MaxBatchOps.
	ErrCodeTooManyOps RuntimeErrorCode = "TOO_MANY_OPS"

	// ErrCodeBadBatchSignature indicates the submitter did not sign the batch.
	ErrCodeBadBatchSignature RuntimeErrorCode = "BAD_BATCH_SIGNATURE"

	// ErrCodeSignatureVerification indicates a verification operation failed.
	ErrCodeSignatureVerification RuntimeErrorCode = "SIGNATURE_VERIFICATION_FAILED"

	// ErrCodeUnknownProgram indicates an operation addressed to no registered program.
	ErrCodeUnknownProgram RuntimeErrorCode = "UNKNOWN_PROGRAM"
)

// CodeInternal is reported by CodeOf for errors that carry no code.
const CodeInternal = "INTERNAL"

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.OpIndex >= 0 {
		return fmt.Sprintf("%s: %s (op=%d)", e.Code, e.Message, e.OpIndex)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode exposes the code to CodeOf.
func (e *RuntimeError) ErrorCode() string {
	return string(e.Code)
}

// Coded is implemented by errors that carry a stable code for the batch log.
type Coded interface {
	error
	ErrorCode() string
}

// CodeOf returns the stable code of err, "" for nil, or CodeInternal.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var c Coded
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return CodeInternal
}

func newRuntimeError(code RuntimeErrorCode, opIndex int, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), OpIndex: opIndex}
}

// OpError is a program failure, tagged with the operation that raised it.
// CodeOf sees through it to the program's own code.
type OpError struct {
	OpIndex int
	Err     error
}

func (e *OpError) Error() string { return fmt.Sprintf("op %d: %v", e.OpIndex, e.Err) }

func (e *OpError) Unwrap() error { return e.Err }

// FailedOp returns the index of the operation that rejected a batch with
// err, or -1 when the batch as a whole was rejected.
func FailedOp(err error) int {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.OpIndex
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.OpIndex
	}
	return -1
}
