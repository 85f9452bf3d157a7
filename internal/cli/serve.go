package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cavityproof/internal/claim"
	"github.com/roach88/cavityproof/internal/gateway"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger behind an HTTP gateway",
		Long: `Own the ledger database and accept signed batches over HTTP.

Every submitted batch runs through one executor loop, so submitters are
totally ordered. Point init-user, claim and claim-dev at the gateway with
--ledger-url.

Routes:
  GET  /healthz                          liveness
  GET  /metrics                          Prometheus metrics
  POST /v1/batches                       signed batch -> receipt
  GET  /v1/users/{user}/state            claim state
  GET  /v1/users/{user}/nonces/{nonce}   whether a nonce was consumed

Example:
  cavityproof serve --listen 127.0.0.1:8081`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Listen, "listen", "l", "", "listen address (default: ledger.listen from config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(ctxOf(cmd))
	defer cancel()

	metrics := claim.NewMetrics(nil)
	e, err := openEnv(ctx, opts.RootOptions, claim.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer e.Close()

	srv := gateway.NewServer(e.ledger, e.cfg.ProgramID,
		gateway.WithLogger(e.logger),
		gateway.WithCollectors(metrics.Collector()),
	)

	addr := opts.Listen
	if addr == "" {
		addr = e.cfg.Ledger.Listen
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			e.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Ledger gateway listening on %s\n", addr)
	if err := srv.Serve(ctx, addr); err != nil {
		return WrapExitError(ExitFailure, "ledger gateway error", err)
	}
	e.logger.Info("ledger gateway stopped gracefully")
	return nil
}
