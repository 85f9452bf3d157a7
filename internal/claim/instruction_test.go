package claim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/testutil"
)

func sampleArgs() Args {
	var sh ir.SessionHash
	for i := range sh {
		sh[i] = byte(i)
	}
	return Args{
		User:        testutil.NewKeypair("alice").Public,
		Day:         -5,
		SessionHash: sh,
		Nonce:       testutil.NonceFromByte(9),
		ExpiresAt:   1_700_000_300,
		Signature:   testutil.NewKeypair("oracle").Sign([]byte("x")),
	}
}

func TestInstruction_RoundTrip(t *testing.T) {
	a := sampleArgs()

	in, err := DecodeInstruction(EncodeClaim(a))
	require.NoError(t, err)
	assert.Equal(t, KindClaim, in.Kind)
	assert.Equal(t, a, in.Args)

	in, err = DecodeInstruction(EncodeClaimDev(a))
	require.NoError(t, err)
	assert.Equal(t, KindClaimDev, in.Kind)
	assert.Equal(t, a, in.Args)

	in, err = DecodeInstruction(EncodeInitUser())
	require.NoError(t, err)
	assert.Equal(t, KindInitUser, in.Kind)
}

func TestInstruction_Malformed(t *testing.T) {
	claim := EncodeClaim(sampleArgs())

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unknown kind", []byte{7}},
		{"init with args", []byte{0, 1}},
		{"truncated claim", claim[:len(claim)-1]},
		{"trailing bytes", append(append([]byte{}, claim...), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInstruction(tt.data)
			assert.ErrorIs(t, err, ErrBadInstruction)
		})
	}
}

func TestArgs_Payload(t *testing.T) {
	a := sampleArgs()
	p := a.Payload()

	assert.Equal(t, a.User, p.User)
	assert.Equal(t, a.Day, p.Day)
	assert.Equal(t, a.SessionHash, p.SessionHash)
	assert.Equal(t, a.Nonce, p.Nonce)
	assert.Equal(t, a.ExpiresAt, p.ExpiresAt)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "init_user", KindInitUser.String())
	assert.Equal(t, "claim", KindClaim.String())
	assert.Equal(t, "claim_dev", KindClaimDev.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
