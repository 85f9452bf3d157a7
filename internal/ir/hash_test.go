package ir

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomainSeparatesDomains(t *testing.T) {
	data := []byte("payload")

	a := HashWithDomain(DomainSession, data)
	b := HashWithDomain(DomainBatch, data)

	assert.NotEqual(t, a, b)
	assert.Equal(t, sha256.Sum256(append([]byte(DomainSession+"\x00"), data...)), a)
}

func TestDeriveAddressDeterministic(t *testing.T) {
	program := Pubkey{1}
	user := Pubkey{2}

	a1, err := DeriveAddress(program, []byte("user"), user[:])
	require.NoError(t, err)
	a2, err := DeriveAddress(program, []byte("user"), user[:])
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
}

func TestDeriveAddressDistinguishesInputs(t *testing.T) {
	program := Pubkey{1}

	base := MustDeriveAddress(program, []byte("ab"), []byte("c"))
	shifted := MustDeriveAddress(program, []byte("a"), []byte("bc"))
	otherProgram := MustDeriveAddress(Pubkey{9}, []byte("ab"), []byte("c"))

	assert.NotEqual(t, base, shifted, "seed boundaries must be part of the address")
	assert.NotEqual(t, base, otherProgram, "program id must be part of the address")
}

func TestDeriveAddressRejectsLongSeed(t *testing.T) {
	_, err := DeriveAddress(Pubkey{}, make([]byte, 256))
	require.Error(t, err)
}

func TestBatchDigestCoversSignerAndOps(t *testing.T) {
	ops := []OperationView{{ProgramID: Pubkey{1}, Data: []byte{0}}}

	d1, err := BatchDigest(Pubkey{7}, ops)
	require.NoError(t, err)
	d2, err := BatchDigest(Pubkey{8}, ops)
	require.NoError(t, err)
	d3, err := BatchDigest(Pubkey{7}, []OperationView{{ProgramID: Pubkey{1}, Data: []byte{1}}})
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
	assert.NotEqual(t, d1, d3)
}
