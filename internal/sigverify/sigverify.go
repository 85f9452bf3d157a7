// Package sigverify is the host's fixed-identity Ed25519 verification
// facility. A batch may carry operations addressed to this facility; the
// host checks every signature they describe before any other operation in
// the batch runs, so a program only needs to confirm such an operation is
// present and describes the (key, signature, message) it expects.
//
// Operation data layout:
//
//	num_signatures u8
//	padding        u8
//	offsets        num_signatures x 14 bytes (seven u16 LE fields)
//	...            key, signature and message bytes
//
// Each offsets record holds signature_offset, signature_instruction_index,
// public_key_offset, public_key_instruction_index, message_data_offset,
// message_data_size and message_instruction_index. Only self-references
// (index 0xFFFF) are accepted.
package sigverify

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/roach88/cavityproof/internal/ir"
)

// DefaultProgramID is the well-known identity of the facility.
var DefaultProgramID = ir.MustParsePubkey("Ed25519SigVerify111111111111111111111111111")

const (
	// SelfIndex marks an offset that refers to the operation's own data.
	SelfIndex = 0xFFFF

	headerSize  = 2
	offsetsSize = 14

	// Layout produced by Build for a single signature.
	keyOffset = headerSize + offsetsSize
	sigOffset = keyOffset + ir.PubkeySize
	msgOffset = sigOffset + ir.SignatureSize
)

var (
	// ErrMalformed reports data that does not follow the layout.
	ErrMalformed = errors.New("malformed signature verification data")

	// ErrBadSignature reports a well-formed entry whose signature does not verify.
	ErrBadSignature = errors.New("signature verification failed")
)

// Entry is one (key, signature, message) triple extracted by Parse.
type Entry struct {
	PublicKey ir.Pubkey
	Signature ir.Signature
	Message   []byte
}

// Build encodes a single-signature verification operation.
func Build(pub ir.Pubkey, sig ir.Signature, msg []byte) []byte {
	data := make([]byte, msgOffset+len(msg))
	data[0] = 1
	data[1] = 0
	fields := []uint16{
		sigOffset, SelfIndex,
		keyOffset, SelfIndex,
		msgOffset, uint16(len(msg)), SelfIndex,
	}
	for i, f := range fields {
		binary.LittleEndian.PutUint16(data[headerSize+2*i:], f)
	}
	copy(data[keyOffset:], pub[:])
	copy(data[sigOffset:], sig[:])
	copy(data[msgOffset:], msg)
	return data
}

// Parse decodes every entry by explicit offset. Message slices alias data.
func Parse(data []byte) ([]Entry, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformed, len(data))
	}
	count := int(data[0])
	if count == 0 {
		return nil, fmt.Errorf("%w: no signatures", ErrMalformed)
	}
	if len(data) < headerSize+count*offsetsSize {
		return nil, fmt.Errorf("%w: truncated offsets table", ErrMalformed)
	}

	entries := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		rec := data[headerSize+i*offsetsSize:]
		field := func(n int) int { return int(binary.LittleEndian.Uint16(rec[2*n:])) }

		sigOff, sigIdx := field(0), field(1)
		keyOff, keyIdx := field(2), field(3)
		msgOff, msgLen, msgIdx := field(4), field(5), field(6)
		if sigIdx != SelfIndex || keyIdx != SelfIndex || msgIdx != SelfIndex {
			return nil, fmt.Errorf("%w: entry %d references another operation", ErrMalformed, i)
		}

		sig, err := slice(data, sigOff, ir.SignatureSize)
		if err != nil {
			return nil, fmt.Errorf("entry %d signature: %w", i, err)
		}
		key, err := slice(data, keyOff, ir.PubkeySize)
		if err != nil {
			return nil, fmt.Errorf("entry %d public key: %w", i, err)
		}
		msg, err := slice(data, msgOff, msgLen)
		if err != nil {
			return nil, fmt.Errorf("entry %d message: %w", i, err)
		}

		var e Entry
		copy(e.Signature[:], sig)
		copy(e.PublicKey[:], key)
		e.Message = msg
		entries = append(entries, e)
	}
	return entries, nil
}

// VerifyOp performs the facility's signature math over every entry.
func VerifyOp(data []byte) error {
	entries, err := Parse(data)
	if err != nil {
		return err
	}
	for i, e := range entries {
		if !ed25519.Verify(ed25519.PublicKey(e.PublicKey[:]), e.Message, e.Signature[:]) {
			return fmt.Errorf("%w: entry %d", ErrBadSignature, i)
		}
	}
	return nil
}

func slice(data []byte, off, n int) ([]byte, error) {
	if off+n > len(data) {
		return nil, fmt.Errorf("%w: range [%d,%d) exceeds %d bytes", ErrMalformed, off, off+n, len(data))
	}
	return data[off : off+n], nil
}
