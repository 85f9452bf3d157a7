package ir

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

// Widths of the fixed-size identifiers.
const (
	PubkeySize      = 32
	NonceSize       = 16
	SessionHashSize = 32
	SignatureSize   = 64
)

// Pubkey is a 32-byte Ed25519 public key or derived account address.
// Its text form is base58.
type Pubkey [PubkeySize]byte

// Nonce is the single-use value binding an attestation to one claim.
type Nonce [NonceSize]byte

// SessionHash commits to the off-chain session that earned a claim.
type SessionHash [SessionHashSize]byte

// Signature is a 64-byte Ed25519 signature.
type Signature [SignatureSize]byte

// String returns the base58 form of the key.
func (k Pubkey) String() string {
	return base58.Encode(k[:])
}

// IsZero reports whether every byte of the key is zero.
func (k Pubkey) IsZero() bool {
	return k == Pubkey{}
}

// MarshalText implements encoding.TextMarshaler.
func (k Pubkey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParsePubkey decodes a base58 public key.
func ParsePubkey(s string) (Pubkey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Pubkey{}, fmt.Errorf("pubkey: empty string")
	}
	raw := base58.Decode(s)
	if len(raw) != PubkeySize {
		return Pubkey{}, fmt.Errorf("pubkey %q: decoded %d bytes, want %d", s, len(raw), PubkeySize)
	}
	var k Pubkey
	copy(k[:], raw)
	return k, nil
}

// MustParsePubkey is like ParsePubkey but panics on error.
// Use only for compile-time constants and tests.
func MustParsePubkey(s string) Pubkey {
	k, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// PubkeyFromBytes copies b into a Pubkey.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	if len(b) != PubkeySize {
		return Pubkey{}, fmt.Errorf("pubkey: got %d bytes, want %d", len(b), PubkeySize)
	}
	var k Pubkey
	copy(k[:], b)
	return k, nil
}

func (n Nonce) String() string { return hex.EncodeToString(n[:]) }

// MarshalText implements encoding.TextMarshaler.
func (n Nonce) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Nonce) UnmarshalText(text []byte) error {
	return decodeHexInto(n[:], "nonce", string(text))
}

func (h SessionHash) String() string { return hex.EncodeToString(h[:]) }

// MarshalText implements encoding.TextMarshaler.
func (h SessionHash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *SessionHash) UnmarshalText(text []byte) error {
	return decodeHexInto(h[:], "session hash", string(text))
}

func (s Signature) String() string { return hex.EncodeToString(s[:]) }

// MarshalText implements encoding.TextMarshaler.
func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signature) UnmarshalText(text []byte) error {
	return decodeHexInto(s[:], "signature", string(text))
}

// decodeHexInto decodes a hex string that must fill dst exactly.
func decodeHexInto(dst []byte, what, s string) error {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("%s: got %d bytes, want %d", what, len(raw), len(dst))
	}
	copy(dst, raw)
	return nil
}
