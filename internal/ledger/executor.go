package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/sigverify"
	"github.com/roach88/cavityproof/internal/store"
)

// ErrStopped is returned by Submit once the Executor has been stopped.
var ErrStopped = errors.New("ledger stopped")

// Receipt identifies an executed batch in the batch log.
type Receipt struct {
	ID  string `json:"id"`
	Seq int64  `json:"seq"` // 0 if a rejection could not be logged
}

// BatchObserver learns the final outcome of every batch, after its
// transaction has committed or rolled back. err is nil for a committed batch.
type BatchObserver interface {
	ObserveBatch(b Batch, err error)
}

// Executor applies batches to the store, one at a time.
//
// Thread-safety model:
//   - Execute(): safe from any goroutine; serialized by an internal mutex
//   - Submit(): safe from any goroutine; handed to the Run loop
//   - Run(): must be called from exactly one goroutine
//   - Register(), Observe(): call before the first batch
type Executor struct {
	store      *store.Store
	time       TimeSource
	ids        IDGenerator
	verifierID ir.Pubkey
	logger     *slog.Logger
	programs   map[ir.Pubkey]Program
	observers  []BatchObserver
	queue      *jobQueue

	mu sync.Mutex // held for the whole of one batch
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeSource sets the trusted clock. Default: SystemTime.
func WithTimeSource(ts TimeSource) Option {
	return func(e *Executor) { e.time = ts }
}

// WithVerifierID sets the identity of the verification facility.
// Default: sigverify.DefaultProgramID.
func WithVerifierID(id ir.Pubkey) Option {
	return func(e *Executor) { e.verifierID = id }
}

// WithIDGenerator sets the batch id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Executor) { e.ids = g }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// Open creates an Executor over st. Batch seqs are taken from the log inside
// each batch's transaction, so any number of Executors may share st's file.
func Open(ctx context.Context, st *store.Store, opts ...Option) (*Executor, error) {
	if _, err := st.LastSeq(ctx); err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	e := &Executor{
		store:      st,
		time:       SystemTime{},
		ids:        UUIDv7Generator{},
		verifierID: sigverify.DefaultProgramID,
		logger:     slog.Default(),
		programs:   make(map[ir.Pubkey]Program),
		queue:      newJobQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// VerifierID returns the identity of the verification facility.
func (e *Executor) VerifierID() ir.Pubkey { return e.verifierID }

// Store returns the underlying store for committed reads.
func (e *Executor) Store() *store.Store { return e.store }

// Now returns the trusted clock in unix seconds.
func (e *Executor) Now() int64 { return e.time.Now().Unix() }

// Register binds a program to id.
func (e *Executor) Register(id ir.Pubkey, p Program) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id == e.verifierID {
		return fmt.Errorf("register %s: id is reserved for signature verification", id)
	}
	if _, exists := e.programs[id]; exists {
		return fmt.Errorf("register %s: program already registered", id)
	}
	e.programs[id] = p
	return nil
}

// Observe adds o to the observers told about every finished batch.
func (e *Executor) Observe(o BatchObserver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// Execute runs b to completion and logs the outcome.
//
// Every operation of b commits together with its log entry, or not at all.
// A non-nil error is the reason the batch was rejected; the Receipt then
// names the log entry recording the rejection.
func (e *Executor) Execute(ctx context.Context, b Batch) (Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rcpt := Receipt{ID: e.ids.Generate()}
	rec := store.BatchRecord{
		ID:      rcpt.ID,
		Signer:  b.Signer,
		Status:  store.StatusOK,
		OpCount: len(b.Ops),
	}

	seq, runErr := e.commit(ctx, b, rec)
	if runErr == nil {
		rcpt.Seq = seq
		e.notify(b, nil)
		e.logger.Info("batch committed",
			"id", rcpt.ID,
			"seq", rcpt.Seq,
			"signer", b.Signer.String(),
			"ops", len(b.Ops),
		)
		return rcpt, nil
	}

	rec.Status = store.StatusError
	rec.ErrorCode = CodeOf(runErr)
	rec.ErrorMessage = runErr.Error()
	logged, err := e.store.AppendBatch(ctx, rec)
	if err != nil {
		e.logger.Error("failed to log rejected batch", "id", rcpt.ID, "error", err)
	}
	rcpt.Seq = logged
	e.notify(b, runErr)
	e.logger.Info("batch rejected",
		"id", rcpt.ID,
		"seq", rcpt.Seq,
		"signer", b.Signer.String(),
		"code", rec.ErrorCode,
		"error", runErr,
	)
	return rcpt, runErr
}

// commit validates b and runs its operations and its log entry in one
// transaction. Returns the committed seq.
// CRITICAL: caller holds e.mu.
func (e *Executor) commit(ctx context.Context, b Batch, rec store.BatchRecord) (int64, error) {
	if err := e.validate(b); err != nil {
		return 0, err
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	seq, err := tx.NextSeq(ctx)
	if err != nil {
		return 0, err
	}

	now := e.time.Now().Unix()
	for i, op := range b.Ops {
		if op.ProgramID == e.verifierID {
			continue
		}
		ic := &InvokeContext{
			ctx:     ctx,
			tx:      tx,
			program: op.ProgramID,
			signer:  b.Signer,
			ops:     b.Ops,
			index:   i,
			now:     now,
			seq:     seq,
		}
		if err := e.programs[op.ProgramID].Execute(ic, op.Data); err != nil {
			e.logger.Debug("operation failed",
				"seq", seq,
				"op", i,
				"program", op.ProgramID.String(),
				"error", err,
			)
			return 0, &OpError{OpIndex: i, Err: err}
		}
	}

	rec.Seq = seq
	if err := tx.WriteBatch(ctx, rec); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return seq, nil
}

// validate runs every check that needs no store access.
func (e *Executor) validate(b Batch) error {
	if len(b.Ops) == 0 {
		return newRuntimeError(ErrCodeEmptyBatch, -1, "batch has no operations")
	}
	if len(b.Ops) > MaxBatchOps {
		return newRuntimeError(ErrCodeTooManyOps, -1, "batch has %d operations, max %d", len(b.Ops), MaxBatchOps)
	}
	if !b.verifySignature() {
		return newRuntimeError(ErrCodeBadBatchSignature, -1, "signature does not match signer %s", b.Signer)
	}

	// Verification operations run before anything else so a program can
	// trust any it finds in the batch.
	for i, op := range b.Ops {
		if op.ProgramID != e.verifierID {
			continue
		}
		if err := sigverify.VerifyOp(op.Data); err != nil {
			return newRuntimeError(ErrCodeSignatureVerification, i, "%v", err)
		}
	}
	for i, op := range b.Ops {
		if op.ProgramID == e.verifierID {
			continue
		}
		if _, ok := e.programs[op.ProgramID]; !ok {
			return newRuntimeError(ErrCodeUnknownProgram, i, "no program %s", op.ProgramID)
		}
	}
	return nil
}

// notify tells every observer how b ended.
// CRITICAL: caller holds e.mu.
func (e *Executor) notify(b Batch, err error) {
	for _, o := range e.observers {
		o.ObserveBatch(b, err)
	}
}

// Submit hands b to the Run loop and waits for its outcome.
func (e *Executor) Submit(ctx context.Context, b Batch) (Receipt, error) {
	j := job{batch: b, result: make(chan jobResult, 1)}
	if !e.queue.Enqueue(j) {
		return Receipt{}, ErrStopped
	}
	select {
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	case res := <-j.result:
		return res.receipt, res.err
	}
}

// Run executes submitted batches in FIFO order.
// Blocks until ctx is cancelled or Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (e *Executor) Run(ctx context.Context) error {
	last, err := e.store.LastSeq(ctx)
	if err != nil {
		e.queue.Close()
		e.drain(ErrStopped)
		return fmt.Errorf("ledger run: %w", err)
	}
	e.logger.Info("ledger starting", "seq", last)

	for {
		if j, ok := e.queue.TryDequeue(); ok {
			// A submitter that gave up still gets its batch executed;
			// only the result is dropped.
			rcpt, err := e.Execute(ctx, j.batch)
			j.result <- jobResult{receipt: rcpt, err: err}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("ledger stopping: context cancelled")
			e.queue.Close()
			e.drain(ErrStopped)
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed
			if e.queue.Len() == 0 {
				e.logger.Info("ledger stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run finishes queued batches and returns.
func (e *Executor) Stop() {
	e.queue.Close()
}

// drain fails every queued job with err.
func (e *Executor) drain(err error) {
	for {
		j, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		j.result <- jobResult{err: err}
	}
}
