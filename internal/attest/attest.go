// Package attest confirms that a batch carries a companion verification
// operation vouching for an oracle signature over an exact message.
//
// The host verifies every companion operation before the batch runs, so
// finding one that names the expected (key, signature, message) proves the
// oracle signed that message.
package attest

import (
	"bytes"
	"errors"

	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/ledger"
	"github.com/roach88/cavityproof/internal/sigverify"
)

// MaxScan caps how many co-batched operations are inspected.
const MaxScan = 256

// ErrMissingAttestation reports that no companion operation matched.
var ErrMissingAttestation = errors.New("missing attestation")

// Expectation is the triple a companion operation must carry.
type Expectation struct {
	VerifierID ir.Pubkey
	OracleKey  ir.Pubkey
	Signature  ir.Signature
	Message    []byte
}

// Verify scans ops (skipping index self) for a companion operation whose
// decoded entries include want's triple byte-for-byte. Companion data that
// fails to decode is skipped.
func Verify(ops []ledger.Operation, self int, want Expectation) error {
	n := len(ops)
	if n > MaxScan {
		n = MaxScan
	}
	for i := 0; i < n; i++ {
		if i == self || ops[i].ProgramID != want.VerifierID {
			continue
		}
		entries, err := sigverify.Parse(ops[i].Data)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.PublicKey == want.OracleKey &&
				e.Signature == want.Signature &&
				bytes.Equal(e.Message, want.Message) {
				return nil
			}
		}
	}
	return ErrMissingAttestation
}

// StructuralMatch reports whether data contains the key, signature and
// message as contiguous byte runs anywhere, in any order. This is the
// presence test older deployments relied on; it accepts data that Verify
// rejects and is kept only to compare the two.
func StructuralMatch(data []byte, want Expectation) bool {
	return bytes.Contains(data, want.OracleKey[:]) &&
		bytes.Contains(data, want.Signature[:]) &&
		bytes.Contains(data, want.Message)
}
