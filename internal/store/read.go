package store

import (
	"context"
	"fmt"

	"github.com/roach88/cavityproof/internal/ir"
)

// GetAccount reads a committed account.
func (s *Store) GetAccount(ctx context.Context, addr ir.Pubkey) (Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, owner_program, data, created_seq, updated_seq
		FROM accounts
		WHERE address = ?
	`, addr.String())
	return scanAccount(row)
}

// CountAccounts returns how many accounts a program owns.
func (s *Store) CountAccounts(ctx context.Context, owner ir.Pubkey) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM accounts WHERE owner_program = ?
	`, owner.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// ReadBatches returns up to limit batch records ordered by seq ascending.
// A limit <= 0 returns every record.
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ReadBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, signer, status, error_code, error_message, op_count
		FROM batches
		ORDER BY seq ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	records := []BatchRecord{}
	for rows.Next() {
		var (
			rec    BatchRecord
			signer string
		)
		if err := rows.Scan(&rec.ID, &rec.Seq, &signer, &rec.Status, &rec.ErrorCode, &rec.ErrorMessage, &rec.OpCount); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		if rec.Signer, err = ir.ParsePubkey(signer); err != nil {
			return nil, fmt.Errorf("scan batch signer: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return records, nil
}

// LastSeq returns the highest logged batch seq, or 0 for an empty log.
// Reported when a ledger starts serving.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM batches`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}
