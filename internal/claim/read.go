package claim

import (
	"context"
	"errors"

	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/store"
)

// ReadUserState reads user's committed state outside any batch.
// Returns a NOT_INITIALIZED ClaimError if the user has no state.
func ReadUserState(ctx context.Context, st *store.Store, program, user ir.Pubkey) (UserState, error) {
	acct, err := st.GetAccount(ctx, UserStateAddress(program, user))
	if errors.Is(err, store.ErrAccountNotFound) {
		return UserState{}, fail(CodeNotInitialized, user, err)
	}
	if err != nil {
		return UserState{}, err
	}
	return DecodeUserState(acct.Data)
}

// NonceUsed reports whether a replay marker exists for (user, nonce).
func NonceUsed(ctx context.Context, st *store.Store, program, user ir.Pubkey, nonce ir.Nonce) (bool, error) {
	_, err := st.GetAccount(ctx, ClaimAddress(program, user, nonce))
	if errors.Is(err, store.ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
