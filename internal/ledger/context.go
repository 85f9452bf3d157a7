package ledger

import (
	"context"
	"fmt"

	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/store"
)

// Program is an on-ledger program. Execute runs one operation addressed to
// it; a returned error aborts the whole batch.
type Program interface {
	Execute(ic *InvokeContext, data []byte) error
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(ic *InvokeContext, data []byte) error

// Execute calls f.
func (f ProgramFunc) Execute(ic *InvokeContext, data []byte) error {
	return f(ic, data)
}

// InvokeContext is everything the host exposes to a running operation.
// It is valid only for the duration of Program.Execute.
type InvokeContext struct {
	ctx     context.Context
	tx      *store.Tx
	program ir.Pubkey
	signer  ir.Pubkey
	ops     []Operation
	index   int
	now     int64
	seq     int64
}

// Context returns the batch context.
func (ic *InvokeContext) Context() context.Context { return ic.ctx }

// ProgramID is the id of the program being invoked.
func (ic *InvokeContext) ProgramID() ir.Pubkey { return ic.program }

// Signer is the key that signed the batch.
func (ic *InvokeContext) Signer() ir.Pubkey { return ic.signer }

// IsSigner reports whether key signed the batch.
func (ic *InvokeContext) IsSigner(key ir.Pubkey) bool { return ic.signer == key }

// Operations returns every operation of the batch in order, including
// verification operations and the current one.
func (ic *InvokeContext) Operations() []Operation { return ic.ops }

// Index is the position of the current operation in Operations.
func (ic *InvokeContext) Index() int { return ic.index }

// Now is the host's trusted clock in unix seconds. Constant within a batch.
func (ic *InvokeContext) Now() int64 { return ic.now }

// Seq is the logical seq assigned to the batch.
func (ic *InvokeContext) Seq() int64 { return ic.seq }

// DeriveAddress derives an address owned by the invoked program.
func (ic *InvokeContext) DeriveAddress(seeds ...[]byte) (ir.Pubkey, error) {
	return ir.DeriveAddress(ic.program, seeds...)
}

// CreateAccount creates an account owned by the invoked program.
// Fails with store.ErrAccountExists if addr is taken.
func (ic *InvokeContext) CreateAccount(addr ir.Pubkey, data []byte) error {
	return ic.tx.CreateAccount(ic.ctx, store.Account{
		Address:    addr,
		Owner:      ic.program,
		Data:       data,
		CreatedSeq: ic.seq,
	})
}

// LoadAccount reads an account as seen by the batch so far.
// Fails with store.ErrAccountNotFound if nothing lives at addr.
func (ic *InvokeContext) LoadAccount(addr ir.Pubkey) (store.Account, error) {
	acct, err := ic.tx.LoadAccount(ic.ctx, addr)
	if err != nil {
		return store.Account{}, fmt.Errorf("load %s: %w", addr, err)
	}
	return acct, nil
}

// StoreAccount overwrites the data of an account the invoked program owns.
func (ic *InvokeContext) StoreAccount(addr ir.Pubkey, data []byte) error {
	return ic.tx.UpdateAccount(ic.ctx, addr, ic.program, data, ic.seq)
}
