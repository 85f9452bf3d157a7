package oracle

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/roach88/cavityproof/internal/claim"
	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/ledger"
	"github.com/roach88/cavityproof/internal/payload"
	"github.com/roach88/cavityproof/internal/sigverify"
)

// DefaultTTL is how long an attestation stays valid.
const DefaultTTL = 5 * time.Minute

// Request names the claim being attested.
type Request struct {
	User        ir.Pubkey
	Day         int64
	SessionHash ir.SessionHash
}

// Attestation is a signed claim payload plus the key that signed it.
type Attestation struct {
	OracleKey   ir.Pubkey      `json:"oracle_key"`
	User        ir.Pubkey      `json:"user"`
	Day         int64          `json:"day"`
	SessionHash ir.SessionHash `json:"session_hash"`
	Nonce       ir.Nonce       `json:"nonce"`
	ExpiresAt   int64          `json:"expires_at"`
	Signature   ir.Signature   `json:"signature"`
}

// Payload is the signed message.
func (a Attestation) Payload() payload.Payload {
	return payload.Payload{
		User:        a.User,
		Day:         a.Day,
		SessionHash: a.SessionHash,
		Nonce:       a.Nonce,
		ExpiresAt:   a.ExpiresAt,
	}
}

// Verify checks the signature against OracleKey.
func (a Attestation) Verify() error {
	if !ed25519.Verify(ed25519.PublicKey(a.OracleKey[:]), a.Payload().Bytes(), a.Signature[:]) {
		return errors.New("attestation signature does not verify")
	}
	return nil
}

// Args converts the attestation into claim arguments.
func (a Attestation) Args() claim.Args {
	return claim.Args{
		User:        a.User,
		Day:         a.Day,
		SessionHash: a.SessionHash,
		Nonce:       a.Nonce,
		ExpiresAt:   a.ExpiresAt,
		Signature:   a.Signature,
	}
}

// CompanionOp builds the verification operation that must accompany the claim.
func (a Attestation) CompanionOp(verifierID ir.Pubkey) ledger.Operation {
	return ledger.Operation{
		ProgramID: verifierID,
		Data:      sigverify.Build(a.OracleKey, a.Signature, a.Payload().Bytes()),
	}
}

// Ops returns the companion and claim operations, in batch order.
// dev selects claim_dev instead of claim.
func (a Attestation) Ops(verifierID, programID ir.Pubkey, dev bool) []ledger.Operation {
	data := claim.EncodeClaim(a.Args())
	if dev {
		data = claim.EncodeClaimDev(a.Args())
	}
	return []ledger.Operation{
		a.CompanionOp(verifierID),
		{ProgramID: programID, Data: data},
	}
}

// Signer issues attestations with the oracle key.
//
// Thread-safety: Signer is safe for concurrent use.
type Signer struct {
	key  ed25519.PrivateKey
	pub  ir.Pubkey
	ttl  time.Duration
	time ledger.TimeSource
	rand io.Reader
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithTTL sets the attestation lifetime. Default: DefaultTTL.
func WithTTL(d time.Duration) SignerOption {
	return func(s *Signer) { s.ttl = d }
}

// WithClock sets the clock expiry is measured from. Default: system time.
func WithClock(ts ledger.TimeSource) SignerOption {
	return func(s *Signer) { s.time = ts }
}

// WithRand sets the nonce source. Default: crypto/rand.
func WithRand(r io.Reader) SignerOption {
	return func(s *Signer) { s.rand = r }
}

// NewSigner creates a Signer for key.
func NewSigner(key ed25519.PrivateKey, opts ...SignerOption) (*Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("oracle key: got %d bytes, want %d", len(key), ed25519.PrivateKeySize)
	}
	s := &Signer{
		key:  key,
		ttl:  DefaultTTL,
		time: ledger.SystemTime{},
		rand: rand.Reader,
	}
	copy(s.pub[:], key.Public().(ed25519.PublicKey))
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl <= 0 {
		return nil, fmt.Errorf("oracle ttl must be positive, got %s", s.ttl)
	}
	return s, nil
}

// PublicKey is the key claims must be attested by.
func (s *Signer) PublicKey() ir.Pubkey { return s.pub }

// Now returns the signer's clock.
func (s *Signer) Now() time.Time { return s.time.Now() }

// Attest signs req with a fresh nonce and expiry.
func (s *Signer) Attest(req Request) (Attestation, error) {
	if req.User.IsZero() {
		return Attestation{}, errors.New("attest: user is required")
	}
	if req.Day < 0 {
		return Attestation{}, fmt.Errorf("attest: day %d is negative", req.Day)
	}

	a := Attestation{
		OracleKey:   s.pub,
		User:        req.User,
		Day:         req.Day,
		SessionHash: req.SessionHash,
		ExpiresAt:   s.time.Now().Add(s.ttl).Unix(),
	}
	if _, err := io.ReadFull(s.rand, a.Nonce[:]); err != nil {
		return Attestation{}, fmt.Errorf("attest: nonce: %w", err)
	}
	copy(a.Signature[:], ed25519.Sign(s.key, a.Payload().Bytes()))
	return a, nil
}

// AttestSession validates proof and attests it for the day it completed.
func (s *Signer) AttestSession(user ir.Pubkey, proof SessionProof) (Attestation, error) {
	if err := proof.Validate(); err != nil {
		return Attestation{}, err
	}
	completed, err := proof.Completed()
	if err != nil {
		return Attestation{}, err
	}
	if completed.After(s.time.Now()) {
		return Attestation{}, fmt.Errorf("%w: completed_at %s is in the future", ErrInvalidProof, proof.CompletedAt)
	}
	hash, err := proof.SessionHash()
	if err != nil {
		return Attestation{}, err
	}
	return s.Attest(Request{User: user, Day: DayIndex(completed), SessionHash: hash})
}
