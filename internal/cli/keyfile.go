package cli

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/cavityproof/internal/ir"
)

// ReadKeyfile reads a private key stored as a JSON array of its 64 bytes,
// the layout Solana wallet tooling writes.
func ReadKeyfile(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("key file %s: %w", path, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("key file %s: got %d bytes, want %d", path, len(raw), ed25519.PrivateKeySize)
	}

	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	for i, v := range raw {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("key file %s: byte %d out of range: %d", path, i, v)
		}
		key[i] = byte(v)
	}

	// The trailing half must be the public key of the seed.
	want := ed25519.NewKeyFromSeed(key.Seed())
	if !want.Equal(key) {
		return nil, errors.New("key file " + path + ": public half does not match seed")
	}
	return key, nil
}

// WriteKeyfile writes key to a new file readable only by its owner.
// An existing file is never overwritten.
func WriteKeyfile(path string, key ed25519.PrivateKey) error {
	raw := make([]int, len(key))
	for i, b := range key {
		raw[i] = int(b)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write key file: %w", err)
	}
	return f.Close()
}

// publicKey returns key's public half as a Pubkey.
func publicKey(key ed25519.PrivateKey) ir.Pubkey {
	var pk ir.Pubkey
	copy(pk[:], key.Public().(ed25519.PublicKey))
	return pk
}
