// Package payload implements the canonical attestation payload the oracle
// signs and the claim program re-derives.
//
// Layout (little-endian, fixed width, 100 bytes):
//
//	magic "CPv1"   [0:4]
//	user           [4:36]
//	day (i64)      [36:44]
//	session_hash   [44:76]
//	nonce          [76:92]
//	expires_at     [92:100]
//
// Field order and widths must match the off-chain signer exactly.
package payload

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/roach88/cavityproof/internal/ir"
)

// Magic tags every payload and versions the layout.
const Magic = "CPv1"

// Size is the encoded length in bytes.
const Size = 4 + ir.PubkeySize + 8 + ir.SessionHashSize + ir.NonceSize + 8

const (
	offUser    = 4
	offDay     = offUser + ir.PubkeySize
	offSession = offDay + 8
	offNonce   = offSession + ir.SessionHashSize
	offExpires = offNonce + ir.NonceSize
)

// ErrMalformed is returned by Decode for input that is not a payload.
var ErrMalformed = errors.New("malformed attestation payload")

// Payload is the tuple the oracle attests to. It is never persisted.
type Payload struct {
	User        ir.Pubkey
	Day         int64
	SessionHash ir.SessionHash
	Nonce       ir.Nonce
	ExpiresAt   int64
}

// Encode returns the canonical bytes of p.
func Encode(p Payload) [Size]byte {
	var out [Size]byte
	copy(out[:offUser], Magic)
	copy(out[offUser:offDay], p.User[:])
	binary.LittleEndian.PutUint64(out[offDay:offSession], uint64(p.Day))
	copy(out[offSession:offNonce], p.SessionHash[:])
	copy(out[offNonce:offExpires], p.Nonce[:])
	binary.LittleEndian.PutUint64(out[offExpires:], uint64(p.ExpiresAt))
	return out
}

// Bytes is Encode returning a slice.
func (p Payload) Bytes() []byte {
	b := Encode(p)
	return b[:]
}

// Decode is the exact inverse of Encode.
func Decode(b []byte) (Payload, error) {
	if len(b) != Size {
		return Payload{}, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformed, len(b), Size)
	}
	if !bytes.Equal(b[:offUser], []byte(Magic)) {
		return Payload{}, fmt.Errorf("%w: bad magic %q", ErrMalformed, b[:offUser])
	}
	var p Payload
	copy(p.User[:], b[offUser:offDay])
	p.Day = int64(binary.LittleEndian.Uint64(b[offDay:offSession]))
	copy(p.SessionHash[:], b[offSession:offNonce])
	copy(p.Nonce[:], b[offNonce:offExpires])
	p.ExpiresAt = int64(binary.LittleEndian.Uint64(b[offExpires:]))
	return p, nil
}
