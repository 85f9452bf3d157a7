package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for hashes. The version suffix allows algorithm migration.
const (
	DomainAddress = "cavityproof/address/v1"
	DomainBatch   = "cavityproof/batch/v1"
	DomainSession = "cavityproof/session/v1"
)

// HashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveAddress computes the deterministic storage location owned by program
// for the given seeds. Each seed is length-prefixed so ("ab","c") and
// ("a","bc") never collide. Seeds longer than 255 bytes are rejected.
func DeriveAddress(program Pubkey, seeds ...[]byte) (Pubkey, error) {
	data := make([]byte, 0, PubkeySize+64)
	data = append(data, program[:]...)
	for i, seed := range seeds {
		if len(seed) > 255 {
			return Pubkey{}, fmt.Errorf("derive address: seed %d is %d bytes, max 255", i, len(seed))
		}
		data = append(data, byte(len(seed)))
		data = append(data, seed...)
	}
	return Pubkey(HashWithDomain(DomainAddress, data)), nil
}

// MustDeriveAddress is like DeriveAddress but panics on error.
// Use only when seeds are fixed-width identifiers.
func MustDeriveAddress(program Pubkey, seeds ...[]byte) Pubkey {
	addr, err := DeriveAddress(program, seeds...)
	if err != nil {
		panic(err)
	}
	return addr
}

// OperationView is the minimal shape of a batched operation needed to
// compute the batch digest.
type OperationView struct {
	ProgramID Pubkey
	Data      []byte
}

// BatchDigest computes the digest a submitter signs to authorize a batch.
// The digest covers the signer and every operation in order.
func BatchDigest(signer Pubkey, ops []OperationView) ([32]byte, error) {
	list := make(IRArray, len(ops))
	for i, op := range ops {
		list[i] = IRObject{
			"program_id": IRString(op.ProgramID.String()),
			"data":       IRString(hex.EncodeToString(op.Data)),
		}
	}
	obj := IRObject{
		"signer": IRString(signer.String()),
		"ops":    list,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return [32]byte{}, fmt.Errorf("BatchDigest: failed to marshal: %w", err)
	}
	return HashWithDomain(DomainBatch, canonical), nil
}
