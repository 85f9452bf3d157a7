package claim

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/payload"
)

// Kind selects the entry point an operation invokes.
type Kind byte

const (
	KindInitUser Kind = 0
	KindClaim    Kind = 1
	KindClaimDev Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindInitUser:
		return "init_user"
	case KindClaim:
		return "claim"
	case KindClaimDev:
		return "claim_dev"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// argsSize is user ∥ day ∥ session_hash ∥ nonce ∥ expires_at ∥ signature.
const argsSize = ir.PubkeySize + 8 + ir.SessionHashSize + ir.NonceSize + 8 + ir.SignatureSize

// ErrBadInstruction reports operation data that does not decode.
var ErrBadInstruction = errors.New("bad instruction")

// Args are the fields of claim and claim_dev. User names the state being
// claimed; the batch signer must own it.
type Args struct {
	User        ir.Pubkey
	Day         int64
	SessionHash ir.SessionHash
	Nonce       ir.Nonce
	ExpiresAt   int64
	Signature   ir.Signature
}

// Payload is the message the oracle must have signed for these args.
func (a Args) Payload() payload.Payload {
	return payload.Payload{
		User:        a.User,
		Day:         a.Day,
		SessionHash: a.SessionHash,
		Nonce:       a.Nonce,
		ExpiresAt:   a.ExpiresAt,
	}
}

// Instruction is a decoded operation.
type Instruction struct {
	Kind Kind
	Args Args // zero for KindInitUser
}

// EncodeInitUser returns the data of an init_user operation.
func EncodeInitUser() []byte {
	return []byte{byte(KindInitUser)}
}

// EncodeClaim returns the data of a claim operation.
func EncodeClaim(a Args) []byte {
	return encodeArgs(KindClaim, a)
}

// EncodeClaimDev returns the data of a claim_dev operation.
func EncodeClaimDev(a Args) []byte {
	return encodeArgs(KindClaimDev, a)
}

func encodeArgs(k Kind, a Args) []byte {
	buf := make([]byte, 1+argsSize)
	buf[0] = byte(k)
	b := buf[1:]
	copy(b, a.User[:])
	binary.LittleEndian.PutUint64(b[32:], uint64(a.Day))
	copy(b[40:], a.SessionHash[:])
	copy(b[72:], a.Nonce[:])
	binary.LittleEndian.PutUint64(b[88:], uint64(a.ExpiresAt))
	copy(b[96:], a.Signature[:])
	return buf
}

// DecodeInstruction parses operation data. Trailing bytes are rejected.
func DecodeInstruction(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return Instruction{}, fmt.Errorf("%w: empty data", ErrBadInstruction)
	}
	k := Kind(data[0])
	switch k {
	case KindInitUser:
		if len(data) != 1 {
			return Instruction{}, fmt.Errorf("%w: init_user takes no arguments", ErrBadInstruction)
		}
		return Instruction{Kind: k}, nil
	case KindClaim, KindClaimDev:
	default:
		return Instruction{}, fmt.Errorf("%w: unknown kind %d", ErrBadInstruction, data[0])
	}

	b := data[1:]
	if len(b) != argsSize {
		return Instruction{}, fmt.Errorf("%w: %s args are %d bytes, want %d", ErrBadInstruction, k, len(b), argsSize)
	}
	var a Args
	copy(a.User[:], b[:32])
	a.Day = int64(binary.LittleEndian.Uint64(b[32:]))
	copy(a.SessionHash[:], b[40:72])
	copy(a.Nonce[:], b[72:88])
	a.ExpiresAt = int64(binary.LittleEndian.Uint64(b[88:]))
	copy(a.Signature[:], b[96:])
	return Instruction{Kind: k, Args: a}, nil
}
