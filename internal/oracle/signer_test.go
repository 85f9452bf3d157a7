package oracle

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cavityproof/internal/claim"
	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/sigverify"
	"github.com/roach88/cavityproof/internal/testutil"
)

const now = 1_700_000_000

func newTestSigner(t *testing.T, opts ...SignerOption) (*Signer, *testutil.FixedTime) {
	t.Helper()
	clock := testutil.NewFixedTime(now)
	opts = append([]SignerOption{WithClock(clock), WithRand(bytes.NewReader(bytes.Repeat([]byte{0x5A}, 1024)))}, opts...)
	s, err := NewSigner(testutil.NewKeypair("oracle").Private, opts...)
	require.NoError(t, err)
	return s, clock
}

func TestSigner_Attest(t *testing.T) {
	s, _ := newTestSigner(t, WithTTL(90*time.Second))
	user := testutil.NewKeypair("alice").Public

	att, err := s.Attest(Request{User: user, Day: 19_675})
	require.NoError(t, err)

	assert.Equal(t, testutil.NewKeypair("oracle").Public, att.OracleKey)
	assert.Equal(t, user, att.User)
	assert.Equal(t, int64(19_675), att.Day)
	assert.Equal(t, int64(now+90), att.ExpiresAt)
	assert.Equal(t, testutil.NonceFromByte(0x5A), att.Nonce)
	require.NoError(t, att.Verify())

	tampered := att
	tampered.Day++
	assert.Error(t, tampered.Verify())
}

func TestSigner_FreshNonces(t *testing.T) {
	s, err := NewSigner(testutil.NewKeypair("oracle").Private)
	require.NoError(t, err)
	user := testutil.NewKeypair("alice").Public

	a, err := s.Attest(Request{User: user, Day: 1})
	require.NoError(t, err)
	b, err := s.Attest(Request{User: user, Day: 1})
	require.NoError(t, err)
	assert.NotEqual(t, a.Nonce, b.Nonce)
}

func TestSigner_Rejects(t *testing.T) {
	s, _ := newTestSigner(t)

	_, err := s.Attest(Request{Day: 1})
	assert.Error(t, err, "zero user")

	_, err = s.Attest(Request{User: testutil.NewKeypair("alice").Public, Day: -1})
	assert.Error(t, err, "negative day")

	_, err = NewSigner([]byte{1, 2, 3})
	assert.Error(t, err, "short key")

	_, err = NewSigner(testutil.NewKeypair("oracle").Private, WithTTL(0))
	assert.Error(t, err, "zero ttl")
}

func TestSigner_ExhaustedRand(t *testing.T) {
	s, err := NewSigner(testutil.NewKeypair("oracle").Private, WithRand(bytes.NewReader([]byte{1, 2})))
	require.NoError(t, err)

	_, err = s.Attest(Request{User: testutil.NewKeypair("alice").Public, Day: 1})
	assert.Error(t, err)
}

func TestSigner_AttestSession(t *testing.T) {
	s, clock := newTestSigner(t)
	user := testutil.NewKeypair("alice").Public
	proof := validProof() // completes 2800s after now

	_, err := s.AttestSession(user, proof)
	assert.ErrorIs(t, err, ErrInvalidProof, "future completion")

	clock.Set(now + 3_600)
	att, err := s.AttestSession(user, proof)
	require.NoError(t, err)

	hash, err := proof.SessionHash()
	require.NoError(t, err)
	assert.Equal(t, hash, att.SessionHash)
	assert.Equal(t, int64(19_675), att.Day)

	proof.Event = "nope"
	_, err = s.AttestSession(user, proof)
	assert.ErrorIs(t, err, ErrInvalidProof)
}

func TestAttestation_Ops(t *testing.T) {
	s, _ := newTestSigner(t)
	program := ir.MustDeriveAddress(ir.Pubkey{}, []byte("cavityproof"))

	att, err := s.Attest(Request{User: testutil.NewKeypair("alice").Public, Day: 7})
	require.NoError(t, err)

	ops := att.Ops(sigverify.DefaultProgramID, program, false)
	require.Len(t, ops, 2)
	assert.Equal(t, sigverify.DefaultProgramID, ops[0].ProgramID)
	assert.NoError(t, sigverify.VerifyOp(ops[0].Data), "companion op must pass the host check")

	in, err := claim.DecodeInstruction(ops[1].Data)
	require.NoError(t, err)
	assert.Equal(t, claim.KindClaim, in.Kind)
	assert.Equal(t, att.Args(), in.Args)

	dev := att.Ops(sigverify.DefaultProgramID, program, true)
	in, err = claim.DecodeInstruction(dev[1].Data)
	require.NoError(t, err)
	assert.Equal(t, claim.KindClaimDev, in.Kind)
}
