package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cavityproof/internal/claim"
	"github.com/roach88/cavityproof/internal/gateway"
	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/ledger"
	"github.com/roach88/cavityproof/internal/oracle"
)

// SubmitOptions holds flags for commands that submit a batch.
type SubmitOptions struct {
	*RootOptions
	Key         string // signer key file
	Attestation string // attestation JSON file (claim, claim-dev)
	LedgerURL   string // submit through a gateway instead of the local database
}

// SubmitResult is the output of a committed batch.
type SubmitResult struct {
	ID    string     `json:"id"`
	Seq   int64      `json:"seq"`
	User  ir.Pubkey  `json:"user"`
	State *StateView `json:"state,omitempty"`
}

// Text implements Texter.
func (r SubmitResult) Text() string {
	s := fmt.Sprintf("✓ batch %s committed at seq %d", r.ID, r.Seq)
	if r.State != nil {
		s += "\n" + r.State.Text()
	}
	return s
}

// NewInitUserCommand creates the init-user command.
func NewInitUserCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init-user",
		Short: "Create claim state for the key's owner",
		Long: `Create the signer's claim state with streak 0 and no claims.

Fails with ALREADY_INITIALIZED if the state exists.

Example:
  cavityproof init-user --key alice.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, cmd, claim.KindInitUser)
		},
	}

	cmd.Flags().StringVarP(&opts.Key, "key", "k", "", "signer key file (required)")
	cmd.Flags().StringVar(&opts.LedgerURL, "ledger-url", "", "submit to the gateway at this URL (see serve)")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

// NewClaimCommand creates the claim command.
func NewClaimCommand(rootOpts *RootOptions) *cobra.Command {
	return newClaimCommand(rootOpts, claim.KindClaim, "claim",
		"Claim a day with an oracle attestation",
		`Submit the attestation's companion operation and a claim in one batch.

The batch commits only if the attestation is unexpired, signed by the
configured oracle key, not replayed, and for a day after the last claim.

Example:
  cavityproof claim --key alice.json --attestation att.json`)
}

// NewClaimDevCommand creates the claim-dev command.
func NewClaimDevCommand(rootOpts *RootOptions) *cobra.Command {
	return newClaimCommand(rootOpts, claim.KindClaimDev, "claim-dev",
		"Count a claim without advancing the streak",
		`Like claim, but skips day ordering and only counts the claim.

The deployment must enable dev_mode and allow-list the signer.

Example:
  cavityproof claim-dev --key alice.json --attestation att.json`)
}

func newClaimCommand(rootOpts *RootOptions, kind claim.Kind, use, short, long string) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, cmd, kind)
		},
	}

	cmd.Flags().StringVarP(&opts.Key, "key", "k", "", "signer key file (required)")
	cmd.Flags().StringVarP(&opts.Attestation, "attestation", "a", "", "attestation JSON file from the oracle (required)")
	cmd.Flags().StringVar(&opts.LedgerURL, "ledger-url", "", "submit to the gateway at this URL (see serve)")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("attestation")

	return cmd
}

func runSubmit(opts *SubmitOptions, cmd *cobra.Command, kind claim.Kind) error {
	key, err := ReadKeyfile(opts.Key)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load key", err)
	}
	signer := publicKey(key)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	user := signer
	var ops []ledger.Operation
	switch kind {
	case claim.KindInitUser:
		ops = []ledger.Operation{{ProgramID: cfg.ProgramID, Data: claim.EncodeInitUser()}}
	default:
		att, err := readAttestation(opts.Attestation)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load attestation", err)
		}
		user = att.User
		ops = att.Ops(cfg.VerifierID, cfg.ProgramID, kind == claim.KindClaimDev)
	}

	batch := ledger.NewBatch(signer, ops...)
	if err := batch.Sign(key); err != nil {
		return WrapExitError(ExitCommandError, "failed to sign batch", err)
	}

	ctx := ctxOf(cmd)
	f := opts.formatter(cmd)
	details := func(rcpt ledger.Receipt) map[string]any {
		return map[string]any{"id": rcpt.ID, "seq": rcpt.Seq, "op": kind.String()}
	}

	if opts.LedgerURL != "" {
		client := gateway.NewClient(opts.LedgerURL)
		rcpt, err := client.Submit(ctx, batch)
		var rerr *gateway.RejectedError
		if errors.As(err, &rerr) {
			return f.Rejected(err, details(rcpt))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to reach ledger", err)
		}
		result := SubmitResult{ID: rcpt.ID, Seq: rcpt.Seq, User: user}
		if state, err := client.UserState(ctx, user); err == nil {
			result.State = newStateView(user, state)
		}
		return f.Success(result)
	}

	e, err := openLedger(ctx, opts.RootOptions, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	rcpt, err := e.ledger.Execute(ctx, batch)
	if err != nil {
		return f.Rejected(err, details(rcpt))
	}

	result := SubmitResult{ID: rcpt.ID, Seq: rcpt.Seq, User: user}
	if state, err := claim.ReadUserState(ctx, e.store, cfg.ProgramID, user); err == nil {
		result.State = newStateView(user, state)
	}
	return f.Success(result)
}

// readAttestation decodes an attestation as the oracle issues it.
func readAttestation(path string) (oracle.Attestation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return oracle.Attestation{}, err
	}
	var att oracle.Attestation
	if err := json.Unmarshal(data, &att); err != nil {
		return oracle.Attestation{}, fmt.Errorf("attestation %s: %w", path, err)
	}
	return att, nil
}
