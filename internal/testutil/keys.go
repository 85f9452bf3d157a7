package testutil

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/roach88/cavityproof/internal/ir"
)

// Keypair is a deterministic Ed25519 identity for tests and scenarios.
type Keypair struct {
	Public  ir.Pubkey
	Private ed25519.PrivateKey
}

// NewKeypair derives a keypair from name. The same name always yields the
// same key, so golden files stay byte-stable across runs.
func NewKeypair(name string) Keypair {
	seed := sha256.Sum256([]byte("cavityproof/test-key/" + name))
	priv := ed25519.NewKeyFromSeed(seed[:])
	var pub ir.Pubkey
	copy(pub[:], priv.Public().(ed25519.PublicKey))
	return Keypair{Public: pub, Private: priv}
}

// Sign signs msg with the keypair.
func (k Keypair) Sign(msg []byte) ir.Signature {
	var sig ir.Signature
	copy(sig[:], ed25519.Sign(k.Private, msg))
	return sig
}

// NonceFromByte returns a nonce filled with b.
func NonceFromByte(b byte) ir.Nonce {
	var n ir.Nonce
	for i := range n {
		n[i] = b
	}
	return n
}
