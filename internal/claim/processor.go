package claim

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/cavityproof/internal/attest"
	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/ledger"
	"github.com/roach88/cavityproof/internal/store"
	"github.com/roach88/cavityproof/internal/streak"
)

// DevMode gates claim_dev. Disabled, or an empty allow-list, admits no one.
type DevMode struct {
	Enabled   bool
	AllowList []ir.Pubkey
}

// Config is the immutable trust root of a deployment.
type Config struct {
	// ProgramID is the identity the processor is registered under.
	ProgramID ir.Pubkey

	// OracleKey is the only key whose attestations are accepted.
	OracleKey ir.Pubkey

	// VerifierID is the identity of the host's verification facility.
	VerifierID ir.Pubkey

	DevMode DevMode
}

// Validate rejects a config missing any identity.
func (c Config) Validate() error {
	switch {
	case c.ProgramID.IsZero():
		return errors.New("claim config: program id is required")
	case c.OracleKey.IsZero():
		return errors.New("claim config: oracle key is required")
	case c.VerifierID.IsZero():
		return errors.New("claim config: verifier id is required")
	}
	return nil
}

// Processor is the claim program. It implements ledger.Program.
type Processor struct {
	cfg     Config
	allow   map[ir.Pubkey]struct{}
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithMetrics records the outcome of every claim operation in m once its
// batch has finished.
func WithMetrics(m *Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor creates a Processor. cfg is copied and never changes.
func NewProcessor(cfg Config, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	allow := make(map[ir.Pubkey]struct{}, len(cfg.DevMode.AllowList))
	for _, k := range cfg.DevMode.AllowList {
		allow[k] = struct{}{}
	}
	cfg.DevMode.AllowList = append([]ir.Pubkey(nil), cfg.DevMode.AllowList...)

	p := &Processor{cfg: cfg, allow: allow, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Register binds the processor to e under its configured program id.
func (p *Processor) Register(e *ledger.Executor) error {
	if e.VerifierID() != p.cfg.VerifierID {
		return fmt.Errorf("register claim program: ledger verifier %s, config verifier %s", e.VerifierID(), p.cfg.VerifierID)
	}
	if err := e.Register(p.cfg.ProgramID, p); err != nil {
		return err
	}
	if p.metrics != nil {
		e.Observe(p)
	}
	return nil
}

// ObserveBatch counts the claim operations of a finished batch.
func (p *Processor) ObserveBatch(b ledger.Batch, err error) {
	failed := ledger.FailedOp(err)
	for i, op := range b.Ops {
		if op.ProgramID != p.cfg.ProgramID {
			continue
		}
		outcome := OutcomeOK
		switch {
		case err == nil:
		case i == failed:
			outcome = CodeOf(err)
		default:
			outcome = OutcomeRolledBack
		}
		p.metrics.observe(Kind(firstByte(op.Data)), outcome)
	}
}

// Config returns the processor's configuration.
func (p *Processor) Config() Config { return p.cfg }

// Execute decodes data and dispatches it.
func (p *Processor) Execute(ic *ledger.InvokeContext, data []byte) error {
	in, err := DecodeInstruction(data)
	if err != nil {
		return fail(CodeInvalidInstruction, ic.Signer(), err)
	}

	switch in.Kind {
	case KindInitUser:
		err = p.Initialize(ic)
	case KindClaim:
		err = p.Claim(ic, in.Args)
	case KindClaimDev:
		err = p.ClaimDev(ic, in.Args)
	}
	return err
}

// Initialize creates the signer's state with streak 0, last day never and
// no claims. Existing state is never overwritten.
func (p *Processor) Initialize(ic *ledger.InvokeContext) error {
	user := ic.Signer()
	addr := UserStateAddress(p.cfg.ProgramID, user)

	err := ic.CreateAccount(addr, NewUserState(user).Encode())
	if errors.Is(err, store.ErrAccountExists) {
		return fail(CodeAlreadyInitialized, user, err)
	}
	if err != nil {
		return err
	}

	p.logger.Debug("user initialized", "user", user.String(), "address", addr.String())
	return nil
}

// Claim is the production path: owner, expiry, attestation, replay and
// streak checks in that order. Any failure aborts the batch.
func (p *Processor) Claim(ic *ledger.InvokeContext, a Args) error {
	addr, state, err := p.authorize(ic, a)
	if err != nil {
		return err
	}

	next, err := streak.Next(state.State, a.Day)
	switch {
	case errors.Is(err, streak.ErrAlreadyClaimedToday):
		return fail(CodeAlreadyClaimedToday, a.User, err)
	case errors.Is(err, streak.ErrInvalidDay):
		return fail(CodeInvalidDay, a.User, err)
	case err != nil:
		return err
	}
	state.State = next

	if err := ic.StoreAccount(addr, state.Encode()); err != nil {
		return err
	}

	p.logger.Debug("claim accepted",
		"user", a.User.String(),
		"day", a.Day,
		"streak", state.Streak,
		"total_claims", state.TotalClaims,
	)
	return nil
}

// ClaimDev runs every check of Claim except streak ordering and only counts
// the claim. The deployment must enable dev mode and allow-list the signer.
func (p *Processor) ClaimDev(ic *ledger.InvokeContext, a Args) error {
	if !p.cfg.DevMode.Enabled {
		return failf(CodeDevModeDisabled, a.User, "claim_dev is disabled on this deployment")
	}
	if _, ok := p.allow[ic.Signer()]; !ok {
		return failf(CodeNotAllowListed, a.User, "signer %s may not use claim_dev", ic.Signer())
	}

	addr, state, err := p.authorize(ic, a)
	if err != nil {
		return err
	}
	state.State = streak.Record(state.State)

	if err := ic.StoreAccount(addr, state.Encode()); err != nil {
		return err
	}

	p.logger.Debug("dev claim accepted",
		"user", a.User.String(),
		"day", a.Day,
		"total_claims", state.TotalClaims,
	)
	return nil
}

// authorize runs the checks shared by Claim and ClaimDev and consumes the
// nonce. It returns the state to update.
func (p *Processor) authorize(ic *ledger.InvokeContext, a Args) (ir.Pubkey, UserState, error) {
	addr := UserStateAddress(p.cfg.ProgramID, a.User)
	acct, err := ic.LoadAccount(addr)
	if errors.Is(err, store.ErrAccountNotFound) {
		return addr, UserState{}, fail(CodeNotInitialized, a.User, err)
	}
	if err != nil {
		return addr, UserState{}, err
	}
	state, err := DecodeUserState(acct.Data)
	if err != nil {
		return addr, UserState{}, err
	}
	if !ic.IsSigner(state.Owner) {
		return addr, UserState{}, failf(CodeBadOwner, a.User, "signer %s is not owner %s", ic.Signer(), state.Owner)
	}

	if err := CheckExpiry(a.ExpiresAt, ic.Now()); err != nil {
		return addr, UserState{}, fail(CodeExpired, a.User, err)
	}

	msg := a.Payload().Bytes()
	err = attest.Verify(ic.Operations(), ic.Index(), attest.Expectation{
		VerifierID: p.cfg.VerifierID,
		OracleKey:  p.cfg.OracleKey,
		Signature:  a.Signature,
		Message:    msg,
	})
	if err != nil {
		return addr, UserState{}, fail(CodeMissingAttestation, a.User, err)
	}

	err = consumeNonce(ic, a.User, a.Nonce, a.Day)
	if errors.Is(err, ErrNonceUsed) {
		return addr, UserState{}, fail(CodeReplayRejected, a.User, err)
	}
	if err != nil {
		return addr, UserState{}, fmt.Errorf("consume nonce: %w", err)
	}
	return addr, state, nil
}

func firstByte(b []byte) byte {
	if len(b) == 0 {
		return 0xFF
	}
	return b[0]
}
