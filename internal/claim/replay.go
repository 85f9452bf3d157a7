package claim

import (
	"errors"
	"fmt"

	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/ledger"
	"github.com/roach88/cavityproof/internal/store"
)

// Address seeds.
var (
	seedUser  = []byte("user")
	seedClaim = []byte("claim")
)

// ErrNonceUsed reports a (user, nonce) pair that already has a record.
var ErrNonceUsed = errors.New("nonce already used")

// UserStateAddress is where program keeps user's streak state.
func UserStateAddress(program, user ir.Pubkey) ir.Pubkey {
	return ir.MustDeriveAddress(program, seedUser, user[:])
}

// ClaimAddress is where program keeps the replay marker for (user, nonce).
func ClaimAddress(program, user ir.Pubkey, nonce ir.Nonce) ir.Pubkey {
	return ir.MustDeriveAddress(program, seedClaim, user[:], nonce[:])
}

// consumeNonce creates the replay marker for (user, nonce), failing with
// ErrNonceUsed if it already exists. The day is stored for audit only.
func consumeNonce(ic *ledger.InvokeContext, user ir.Pubkey, nonce ir.Nonce, day int64) error {
	rec := ClaimRecord{User: user, Nonce: nonce, Day: day}
	err := ic.CreateAccount(ClaimAddress(ic.ProgramID(), user, nonce), rec.Encode())
	if errors.Is(err, store.ErrAccountExists) {
		return fmt.Errorf("%w: %s", ErrNonceUsed, nonce)
	}
	return err
}
