package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cavityproof/internal/claim"
	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/streak"
)

// StateView is a user's committed claim state.
type StateView struct {
	User           ir.Pubkey `json:"user"`
	Owner          ir.Pubkey `json:"owner"`
	Streak         uint32    `json:"streak"`
	LastDayClaimed int64     `json:"last_day_claimed"`
	TotalClaims    uint32    `json:"total_claims"`
}

func newStateView(user ir.Pubkey, s claim.UserState) *StateView {
	return &StateView{
		User:           user,
		Owner:          s.Owner,
		Streak:         s.Streak,
		LastDayClaimed: s.LastDayClaimed,
		TotalClaims:    s.TotalClaims,
	}
}

// Text implements Texter.
func (v StateView) Text() string {
	last := fmt.Sprint(v.LastDayClaimed)
	if v.LastDayClaimed == streak.Never {
		last = "never"
	}
	return fmt.Sprintf("user %s\n  streak:       %d\n  last day:     %s\n  total claims: %d",
		v.User, v.Streak, last, v.TotalClaims)
}

// StateOptions holds flags for the state command.
type StateOptions struct {
	*RootOptions
	User string
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show a user's streak state",
		Long: `Show the committed claim state of a user.

Example:
  cavityproof state --user 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "user public key, base58 (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runState(opts *StateOptions, cmd *cobra.Command) error {
	user, err := ir.ParsePubkey(opts.User)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --user", err)
	}

	st, cfg, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	f := opts.formatter(cmd)
	state, err := claim.ReadUserState(ctxOf(cmd), st, cfg.ProgramID, user)
	if claim.IsCode(err, claim.CodeNotInitialized) {
		if outErr := f.Error(string(claim.CodeNotInitialized), "no claim state for "+user.String(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "user not initialized", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read state", err)
	}
	return f.Success(newStateView(user, state))
}

// BatchesOptions holds flags for the batches command.
type BatchesOptions struct {
	*RootOptions
	Limit int
}

// BatchView is one batch log entry.
type BatchView struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Signer    ir.Pubkey `json:"signer"`
	Status    string    `json:"status"`
	ErrorCode string    `json:"error_code,omitempty"`
	OpCount   int       `json:"op_count"`
}

// BatchList is the output of batches.
type BatchList struct {
	Batches []BatchView `json:"batches"`
}

// Text implements Texter.
func (l BatchList) Text() string {
	if len(l.Batches) == 0 {
		return "No batches."
	}
	var b strings.Builder
	for i, v := range l.Batches {
		if i > 0 {
			b.WriteByte('\n')
		}
		outcome := v.Status
		if v.ErrorCode != "" {
			outcome += " " + v.ErrorCode
		}
		fmt.Fprintf(&b, "%6d  %s  %s  ops=%d  %s", v.Seq, v.ID, v.Signer, v.OpCount, outcome)
	}
	return b.String()
}

// NewBatchesCommand creates the batches command.
func NewBatchesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List the batch log",
		Long: `List logged batches, committed and rejected, oldest first.

Example:
  cavityproof batches --limit 20
  cavityproof batches --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatches(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum batches to list (0 = all)")

	return cmd
}

func runBatches(opts *BatchesOptions, cmd *cobra.Command) error {
	st, _, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ReadBatches(ctxOf(cmd), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read batches", err)
	}

	list := BatchList{Batches: make([]BatchView, 0, len(records))}
	for _, rec := range records {
		list.Batches = append(list.Batches, BatchView{
			ID:        rec.ID,
			Seq:       rec.Seq,
			Signer:    rec.Signer,
			Status:    rec.Status,
			ErrorCode: rec.ErrorCode,
			OpCount:   rec.OpCount,
		})
	}
	return opts.formatter(cmd).Success(list)
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
