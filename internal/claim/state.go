package claim

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/streak"
)

// Persisted sizes, excluding the 8-byte discriminator.
const (
	UserStateSize   = ir.PubkeySize + 4 + 8 + 4
	ClaimRecordSize = ir.PubkeySize + ir.NonceSize + 8

	discriminatorSize = 8
)

var (
	userStateDisc   = discriminator("UserState")
	claimRecordDisc = discriminator("ClaimRecord")

	// ErrBadAccountData reports account bytes of the wrong kind or size.
	ErrBadAccountData = errors.New("bad account data")
)

// discriminator tags account data with its type: sha256("account:"+name)[:8].
func discriminator(name string) [discriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [discriminatorSize]byte
	copy(d[:], sum[:discriminatorSize])
	return d
}

// UserState is the per-user streak summary.
type UserState struct {
	Owner ir.Pubkey
	streak.State
}

// NewUserState is the state a freshly initialized user starts with.
func NewUserState(owner ir.Pubkey) UserState {
	return UserState{Owner: owner, State: streak.Initial()}
}

// Encode lays out discriminator ∥ owner ∥ streak u32 ∥ last_day i64 ∥ total u32,
// little-endian.
func (s UserState) Encode() []byte {
	buf := make([]byte, discriminatorSize+UserStateSize)
	copy(buf, userStateDisc[:])
	b := buf[discriminatorSize:]
	copy(b, s.Owner[:])
	binary.LittleEndian.PutUint32(b[32:], s.Streak)
	binary.LittleEndian.PutUint64(b[36:], uint64(s.LastDayClaimed))
	binary.LittleEndian.PutUint32(b[44:], s.TotalClaims)
	return buf
}

// DecodeUserState is the inverse of UserState.Encode.
func DecodeUserState(data []byte) (UserState, error) {
	b, err := strip(data, userStateDisc, UserStateSize, "user state")
	if err != nil {
		return UserState{}, err
	}
	var s UserState
	copy(s.Owner[:], b[:32])
	s.Streak = binary.LittleEndian.Uint32(b[32:])
	s.LastDayClaimed = int64(binary.LittleEndian.Uint64(b[36:]))
	s.TotalClaims = binary.LittleEndian.Uint32(b[44:])
	return s, nil
}

// ClaimRecord is the write-once replay marker for one (user, nonce).
type ClaimRecord struct {
	User  ir.Pubkey
	Nonce ir.Nonce
	Day   int64
}

// Encode lays out discriminator ∥ user ∥ nonce ∥ day i64 LE.
func (r ClaimRecord) Encode() []byte {
	buf := make([]byte, discriminatorSize+ClaimRecordSize)
	copy(buf, claimRecordDisc[:])
	b := buf[discriminatorSize:]
	copy(b, r.User[:])
	copy(b[32:], r.Nonce[:])
	binary.LittleEndian.PutUint64(b[48:], uint64(r.Day))
	return buf
}

// DecodeClaimRecord is the inverse of ClaimRecord.Encode.
func DecodeClaimRecord(data []byte) (ClaimRecord, error) {
	b, err := strip(data, claimRecordDisc, ClaimRecordSize, "claim record")
	if err != nil {
		return ClaimRecord{}, err
	}
	var r ClaimRecord
	copy(r.User[:], b[:32])
	copy(r.Nonce[:], b[32:48])
	r.Day = int64(binary.LittleEndian.Uint64(b[48:]))
	return r, nil
}

func strip(data []byte, disc [discriminatorSize]byte, size int, what string) ([]byte, error) {
	if len(data) != discriminatorSize+size {
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrBadAccountData, what, len(data), discriminatorSize+size)
	}
	if !bytes.Equal(data[:discriminatorSize], disc[:]) {
		return nil, fmt.Errorf("%w: not a %s", ErrBadAccountData, what)
	}
	return data[discriminatorSize:], nil
}
