package ledger

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/roach88/cavityproof/internal/ir"
)

// MaxBatchOps bounds the number of operations in one batch.
const MaxBatchOps = 64

// Operation is one entry of a batch: opaque data addressed to a program.
// Data is base64 in JSON.
type Operation struct {
	ProgramID ir.Pubkey `json:"program_id"`
	Data      []byte    `json:"data"`
}

// Batch is the atomic unit of execution.
type Batch struct {
	Signer    ir.Pubkey    `json:"signer"`
	Signature ir.Signature `json:"signature"`
	Ops       []Operation  `json:"ops"`
}

// NewBatch creates an unsigned batch.
func NewBatch(signer ir.Pubkey, ops ...Operation) Batch {
	return Batch{Signer: signer, Ops: ops}
}

// Digest returns the bytes the signer must sign.
func (b Batch) Digest() ([32]byte, error) {
	views := make([]ir.OperationView, len(b.Ops))
	for i, op := range b.Ops {
		views[i] = ir.OperationView{ProgramID: op.ProgramID, Data: op.Data}
	}
	return ir.BatchDigest(b.Signer, views)
}

// Sign signs the batch with priv, which must belong to b.Signer.
func (b *Batch) Sign(priv ed25519.PrivateKey) error {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok || !bytes.Equal(pub, b.Signer[:]) {
		return fmt.Errorf("sign batch: key does not match signer %s", b.Signer)
	}
	digest, err := b.Digest()
	if err != nil {
		return fmt.Errorf("sign batch: %w", err)
	}
	copy(b.Signature[:], ed25519.Sign(priv, digest[:]))
	return nil
}

// verifySignature checks the submitter's signature.
func (b Batch) verifySignature() bool {
	digest, err := b.Digest()
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(b.Signer[:]), digest[:], b.Signature[:])
}
