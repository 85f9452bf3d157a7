package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/cavityproof/internal/claim"
	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/ledger"
	"github.com/roach88/cavityproof/internal/logging"
	"github.com/roach88/cavityproof/internal/oracle"
	"github.com/roach88/cavityproof/internal/sigverify"
	"github.com/roach88/cavityproof/internal/store"
	"github.com/roach88/cavityproof/internal/testutil"
)

// Fixed identities shared by every scenario run.
var (
	programKey  = testutil.NewKeypair("harness/program")
	oracleKey   = testutil.NewKeypair("harness/oracle")
	impostorKey = testutil.NewKeypair("harness/impostor")
)

// ProgramID is the claim program's identity in scenario runs.
func ProgramID() ir.Pubkey { return programKey.Public }

// OracleKey is the trusted oracle key in scenario runs.
func OracleKey() ir.Pubkey { return oracleKey.Public }

// UserKey is the deterministic key behind a scenario user name.
func UserKey(name string) testutil.Keypair {
	return testutil.NewKeypair("harness/user/" + name)
}

// nonceSource fills every read with one byte, so each attestation's
// nonce is chosen by the step that requests it.
type nonceSource struct {
	b byte
}

func (n *nonceSource) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = n.b
	}
	return len(p), nil
}

// runner holds the state of one scenario run.
type runner struct {
	ctx      context.Context
	scenario *Scenario
	store    *store.Store
	ledger   *ledger.Executor
	clock    *testutil.FixedTime
	nonce    *nonceSource
	oracle   *oracle.Signer
	impostor *oracle.Signer
	used     map[byte]bool
}

// Run executes a scenario against a fresh in-memory ledger.
//
// Step outcomes that differ from the step's expectation are recorded as
// errors, not returned; the returned error means the run itself broke.
func Run(s *Scenario) (*Result, error) {
	return RunContext(context.Background(), s, logging.Discard())
}

// RunContext is Run with a caller-supplied context and logger.
func RunContext(ctx context.Context, s *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	r, err := newRunner(ctx, s, st, logger)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range s.Steps {
		ev, err := r.step(i, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		result.Trace = append(result.Trace, ev)

		if step.Op == OpAdvance {
			continue
		}
		want := step.Expect
		if want == "" {
			want = ExpectOK
		}
		if ev.Outcome != want {
			result.AddError(AssertionError{Type: "step", Expected: want, Actual: ev.Outcome, Step: i})
		}
	}

	for _, a := range s.Assertions {
		if err := r.check(a, result); err != nil {
			return nil, fmt.Errorf("assertion %s: %w", a.Type, err)
		}
	}
	return result, nil
}

func newRunner(ctx context.Context, s *Scenario, st *store.Store, logger *slog.Logger) (*runner, error) {
	start := s.StartTime
	if start == 0 {
		start = DefaultStartTime
	}
	ttl := oracle.DefaultTTL
	if s.TTLSeconds > 0 {
		ttl = time.Duration(s.TTLSeconds) * time.Second
	}

	r := &runner{
		ctx:      ctx,
		scenario: s,
		store:    st,
		clock:    testutil.NewFixedTime(start),
		nonce:    &nonceSource{},
		used:     make(map[byte]bool),
	}

	ids := make([]string, 0, len(s.Steps))
	for i := range s.Steps {
		ids = append(ids, fmt.Sprintf("batch-%03d", i))
	}
	var err error
	r.ledger, err = ledger.Open(ctx, st,
		ledger.WithTimeSource(r.clock),
		ledger.WithIDGenerator(ledger.NewFixedGenerator(ids...)),
		ledger.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	cfg := claim.Config{
		ProgramID:  programKey.Public,
		OracleKey:  oracleKey.Public,
		VerifierID: sigverify.DefaultProgramID,
		DevMode:    claim.DevMode{Enabled: s.DevMode.Enabled},
	}
	for _, name := range s.DevMode.AllowList {
		cfg.DevMode.AllowList = append(cfg.DevMode.AllowList, UserKey(name).Public)
	}
	proc, err := claim.NewProcessor(cfg, claim.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := proc.Register(r.ledger); err != nil {
		return nil, err
	}

	signerOpts := []oracle.SignerOption{oracle.WithTTL(ttl), oracle.WithClock(r.clock), oracle.WithRand(r.nonce)}
	if r.oracle, err = oracle.NewSigner(oracleKey.Private, signerOpts...); err != nil {
		return nil, err
	}
	if r.impostor, err = oracle.NewSigner(impostorKey.Private, signerOpts...); err != nil {
		return nil, err
	}
	return r, nil
}

// step runs one step and observes its effect.
func (r *runner) step(i int, step Step) (Event, error) {
	if step.Op == OpAdvance {
		r.clock.Advance(time.Duration(step.Seconds) * time.Second)
		return Event{Step: i, Op: step.Op, Now: r.clock.Unix()}, nil
	}

	user := UserKey(step.User)
	signer := user
	if step.Signer != "" {
		signer = UserKey(step.Signer)
	}

	var ops []ledger.Operation
	if step.Op == OpInitUser {
		ops = []ledger.Operation{{ProgramID: programKey.Public, Data: claim.EncodeInitUser()}}
	} else {
		var err error
		if ops, err = r.claimOps(i, step, user.Public); err != nil {
			return Event{}, err
		}
	}
	if step.Delay > 0 {
		r.clock.Advance(time.Duration(step.Delay) * time.Second)
	}

	batch := ledger.NewBatch(signer.Public, ops...)
	if err := batch.Sign(signer.Private); err != nil {
		return Event{}, err
	}
	rcpt, runErr := r.ledger.Execute(r.ctx, batch)

	ev := Event{Step: i, Op: step.Op, User: step.User, Day: step.Day, Seq: rcpt.Seq, Outcome: ExpectOK}
	if runErr != nil {
		ev.Outcome = ledger.CodeOf(runErr)
	}

	state, err := claim.ReadUserState(r.ctx, r.store, programKey.Public, user.Public)
	switch {
	case err == nil:
		ev.State = stateOf(state)
	case claim.IsCode(err, claim.CodeNotInitialized):
	default:
		return Event{}, err
	}
	return ev, nil
}

// claimOps builds the operations of a claim or claim_dev step for the
// requested attestation variant.
func (r *runner) claimOps(i int, step Step, user ir.Pubkey) ([]ledger.Operation, error) {
	b, err := r.pickNonce(step.Nonce)
	if err != nil {
		return nil, err
	}
	r.nonce.b = b
	req := oracle.Request{
		User:        user,
		Day:         step.Day,
		SessionHash: ir.SessionHash(ir.HashWithDomain(ir.DomainSession, fmt.Appendf(nil, "%s/%d", r.scenario.Name, i))),
	}
	att, err := r.oracle.Attest(req)
	if err != nil {
		return nil, err
	}

	dev := step.Op == OpClaimDev
	verifier := sigverify.DefaultProgramID
	claimOp := func(a oracle.Attestation) ledger.Operation {
		return a.Ops(verifier, programKey.Public, dev)[1]
	}

	switch step.Attestation {
	case "", AttestValid:
		return att.Ops(verifier, programKey.Public, dev), nil

	case AttestMissing:
		return []ledger.Operation{claimOp(att)}, nil

	case AttestWrongKey:
		forged, err := r.impostor.Attest(req)
		if err != nil {
			return nil, err
		}
		return forged.Ops(verifier, programKey.Public, dev), nil

	case AttestWrongSignature:
		bad := att
		bad.Signature[0] ^= 0xFF
		return []ledger.Operation{bad.CompanionOp(verifier), claimOp(att)}, nil

	case AttestWrongMessage:
		other := req
		other.Day++
		decoy, err := r.oracle.Attest(other)
		if err != nil {
			return nil, err
		}
		return []ledger.Operation{decoy.CompanionOp(verifier), claimOp(att)}, nil
	}
	return nil, fmt.Errorf("unknown attestation variant %q", step.Attestation)
}

// pickNonce returns want, or the lowest byte not yet used in this run.
func (r *runner) pickNonce(want int) (byte, error) {
	if want != 0 {
		r.used[byte(want)] = true
		return byte(want), nil
	}
	for n := 1; n <= 0xFF; n++ {
		if !r.used[byte(n)] {
			r.used[byte(n)] = true
			return byte(n), nil
		}
	}
	return 0, errors.New("nonce pool exhausted: every nonce byte 1-255 is used")
}
