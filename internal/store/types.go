package store

import "github.com/roach88/cavityproof/internal/ir"

// Account is one row of the accounts table.
type Account struct {
	Address    ir.Pubkey
	Owner      ir.Pubkey // program allowed to write Data
	Data       []byte
	CreatedSeq int64
	UpdatedSeq int64
}

// Batch outcome values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BatchRecord is one row of the batch log.
type BatchRecord struct {
	ID           string
	Seq          int64
	Signer       ir.Pubkey
	Status       string
	ErrorCode    string
	ErrorMessage string
	OpCount      int
}
