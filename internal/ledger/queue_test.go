package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobQueue_FIFO(t *testing.T) {
	q := newJobQueue()

	for i := 1; i <= 3; i++ {
		require.True(t, q.Enqueue(job{batch: Batch{Ops: make([]Operation, i)}}))
	}
	assert.Equal(t, 3, q.Len())

	for i := 1; i <= 3; i++ {
		j, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Len(t, j.batch.Ops, i)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestJobQueue_EnqueueAfterClose(t *testing.T) {
	q := newJobQueue()
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(job{}))
}

func TestJobQueue_WaitSignals(t *testing.T) {
	q := newJobQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(job{})
	}()

	select {
	case <-q.Wait():
		assert.Equal(t, 1, q.Len())
	case <-time.After(time.Second):
		t.Fatal("Wait did not signal")
	}
}

func TestJobQueue_CloseWakesWaiters(t *testing.T) {
	q := newJobQueue()
	q.Close()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("closed queue should wake waiters")
	}
}
