package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubkeyBase58RoundTrip(t *testing.T) {
	var k Pubkey
	for i := range k {
		k[i] = byte(i + 1)
	}

	parsed, err := ParsePubkey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)
}

func TestParsePubkeyRejectsWrongLength(t *testing.T) {
	_, err := ParsePubkey("3mJr7AoUXx2Wqd")
	require.Error(t, err)

	_, err = ParsePubkey("")
	require.Error(t, err)
}

func TestIdentifiersJSON(t *testing.T) {
	type wire struct {
		User  Pubkey      `json:"user"`
		Nonce Nonce       `json:"nonce"`
		Hash  SessionHash `json:"session_hash"`
		Sig   Signature   `json:"signature"`
	}
	in := wire{User: Pubkey{1, 2, 3}, Nonce: Nonce{0xAA}, Hash: SessionHash{0xBB}, Sig: Signature{0xCC}}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nonce":"aa000000000000000000000000000000"`)

	var out wire
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestNonceRejectsShortHex(t *testing.T) {
	var n Nonce
	err := n.UnmarshalText([]byte("abcd"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 16")
}
