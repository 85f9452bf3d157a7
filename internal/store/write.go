package store

import (
	"context"
	"fmt"
)

// NextSeq returns the seq the batch of this transaction will be logged at.
// The write lock taken at Begin keeps it unique across connections.
func (t *Tx) NextSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := t.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM batches`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}

// WriteBatch appends rec to the log. It commits or rolls back together with
// the account writes of the same transaction.
func (t *Tx) WriteBatch(ctx context.Context, rec BatchRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO batches
		(id, seq, signer, status, error_code, error_message, op_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Seq,
		rec.Signer.String(),
		rec.Status,
		rec.ErrorCode,
		rec.ErrorMessage,
		rec.OpCount,
	)
	if err != nil {
		return fmt.Errorf("write batch %s: %w", rec.ID, err)
	}
	return nil
}

// AppendBatch logs rec in a transaction of its own, at the next free seq,
// and returns that seq. rec.Seq is ignored. Used for rejected batches, which
// have no account writes to commit with.
func (s *Store) AppendBatch(ctx context.Context, rec BatchRecord) (int64, error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if rec.Seq, err = tx.NextSeq(ctx); err != nil {
		return 0, err
	}
	if err := tx.WriteBatch(ctx, rec); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return rec.Seq, nil
}
