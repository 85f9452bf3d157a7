package claim

import (
	"errors"
	"fmt"
)

// ErrExpired reports an attestation past its validity window.
var ErrExpired = errors.New("attestation expired")

// CheckExpiry succeeds iff expiresAt >= now. Both are unix seconds.
func CheckExpiry(expiresAt, now int64) error {
	if expiresAt < now {
		return fmt.Errorf("%w: expires_at %d < now %d", ErrExpired, expiresAt, now)
	}
	return nil
}
