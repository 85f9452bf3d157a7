package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cavityproof/internal/ir"
)

// Tx scopes account writes to a single batch. Nothing written through a Tx
// is visible to other readers until Commit.
type Tx struct {
	tx *sql.Tx
}

// CreateAccount inserts acct if its address is free.
// Uses ON CONFLICT(address) DO NOTHING and returns ErrAccountExists when the
// insert was a no-op, so a duplicate create fails without touching the row.
func (t *Tx) CreateAccount(ctx context.Context, acct Account) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO accounts
		(address, owner_program, data, created_seq, updated_seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`,
		acct.Address.String(),
		acct.Owner.String(),
		acct.Data,
		acct.CreatedSeq,
		acct.CreatedSeq,
	)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create account: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("create account %s: %w", acct.Address, ErrAccountExists)
	}
	return nil
}

// LoadAccount reads the account at addr as seen by this transaction.
func (t *Tx) LoadAccount(ctx context.Context, addr ir.Pubkey) (Account, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT address, owner_program, data, created_seq, updated_seq
		FROM accounts
		WHERE address = ?
	`, addr.String())
	return scanAccount(row)
}

// UpdateAccount replaces the data of an existing account.
// Only the owning program may write; ErrNotOwner otherwise.
func (t *Tx) UpdateAccount(ctx context.Context, addr, program ir.Pubkey, data []byte, seq int64) error {
	current, err := t.LoadAccount(ctx, addr)
	if err != nil {
		return err
	}
	if current.Owner != program {
		return fmt.Errorf("update account %s: %w", addr, ErrNotOwner)
	}

	_, err = t.tx.ExecContext(ctx, `
		UPDATE accounts SET data = ?, updated_seq = ?
		WHERE address = ?
	`, data, seq, addr.String())
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// Commit makes every write of the transaction visible.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards every write. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		acct         Account
		address, own string
	)
	err := row.Scan(&address, &own, &acct.Data, &acct.CreatedSeq, &acct.UpdatedSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("scan account: %w", err)
	}

	if acct.Address, err = ir.ParsePubkey(address); err != nil {
		return Account{}, fmt.Errorf("scan account address: %w", err)
	}
	if acct.Owner, err = ir.ParsePubkey(own); err != nil {
		return Account{}, fmt.Errorf("scan account owner: %w", err)
	}
	return acct, nil
}
