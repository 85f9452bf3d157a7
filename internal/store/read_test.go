package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cavityproof/internal/ir"
)

func TestReadBatches_OrderedBySeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	signer := ir.Pubkey{0x55}
	_, err := s.AppendBatch(ctx, BatchRecord{ID: "b", Signer: signer, Status: StatusOK, OpCount: 1})
	require.NoError(t, err)
	_, err = s.AppendBatch(ctx, BatchRecord{ID: "a", Signer: signer, Status: StatusError, ErrorCode: "EXPIRED", ErrorMessage: "attestation expired", OpCount: 2})
	require.NoError(t, err)

	records, err := s.ReadBatches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].ID)
	assert.Equal(t, "a", records[1].ID)
	assert.Equal(t, "EXPIRED", records[1].ErrorCode)
	assert.Equal(t, signer, records[1].Signer)

	limited, err := s.ReadBatches(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestReadBatches_EmptyIsNotNil(t *testing.T) {
	records, err := createTestStore(t).ReadBatches(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestAppendBatch_AssignsNextSeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for want := int64(1); want <= 3; want++ {
		seq, err := s.AppendBatch(ctx, BatchRecord{ID: fmt.Sprintf("b%d", want), Seq: 99, Signer: ir.Pubkey{1}, Status: StatusOK, OpCount: 1})
		require.NoError(t, err)
		assert.Equal(t, want, seq)
	}

	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)
}

func TestAppendBatch_DuplicateIDFails(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	rec := BatchRecord{ID: "same", Signer: ir.Pubkey{1}, Status: StatusOK, OpCount: 1}
	_, err := s.AppendBatch(ctx, rec)
	require.NoError(t, err)
	_, err = s.AppendBatch(ctx, rec)
	assert.Error(t, err)

	records, err := s.ReadBatches(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAppendBatch_TwoConnectionsNeverShareSeq(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	stores := make([]*Store, 2)
	for i := range stores {
		s, err := Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		stores[i] = s
	}

	const perStore = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*perStore)
	for i, s := range stores {
		i, s := i, s
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perStore; j++ {
				_, err := s.AppendBatch(ctx, BatchRecord{ID: fmt.Sprintf("s%d-%d", i, j), Signer: ir.Pubkey{1}, Status: StatusOK, OpCount: 1})
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	records, err := stores[0].ReadBatches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2*perStore)
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.Seq)
	}
}

func TestLastSeq_EmptyLog(t *testing.T) {
	seq, err := createTestStore(t).LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}

func TestCountAccounts(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	tx := beginTestTx(t, s)

	require.NoError(t, tx.CreateAccount(ctx, Account{Address: ir.Pubkey{1}, Owner: testProgram, Data: []byte{}, CreatedSeq: 1}))
	require.NoError(t, tx.CreateAccount(ctx, Account{Address: ir.Pubkey{2}, Owner: testProgram, Data: []byte{}, CreatedSeq: 1}))
	require.NoError(t, tx.CreateAccount(ctx, Account{Address: ir.Pubkey{3}, Owner: ir.Pubkey{9}, Data: []byte{}, CreatedSeq: 1}))
	require.NoError(t, tx.Commit())

	n, err := s.CountAccounts(ctx, testProgram)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
