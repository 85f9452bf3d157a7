package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cavityproof/internal/config"
	"github.com/roach88/cavityproof/internal/ir"
	"github.com/roach88/cavityproof/internal/oracle"
)

// OracleOptions holds flags shared by the oracle subcommands.
type OracleOptions struct {
	*RootOptions
	Key string // overrides oracle.key_file
}

// NewOracleCommand creates the oracle command group.
func NewOracleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OracleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Issue attestations for completed sessions",
		Long: `Sign claim attestations with the oracle key.

The key must match oracle_key in the config; the ledger accepts no other.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.Key, "key", "k", "", "oracle key file (default: oracle.key_file from config)")

	cmd.AddCommand(newOracleSignCommand(opts))
	cmd.AddCommand(newOracleServeCommand(opts))

	return cmd
}

// loadSigner builds a Signer from the configured key, refusing a key that
// is not the configured oracle_key.
func loadSigner(opts *OracleOptions, cfg config.Config, logger *slog.Logger) (*oracle.Signer, error) {
	path := opts.Key
	if path == "" {
		path = cfg.Oracle.KeyFile
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no oracle key: set oracle.key_file or pass --key")
	}
	key, err := ReadKeyfile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load oracle key", err)
	}
	if pk := publicKey(key); pk != cfg.OracleKey {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("oracle key %s does not match configured oracle_key %s", pk, cfg.OracleKey))
	}

	signer, err := oracle.NewSigner(key, oracle.WithTTL(cfg.Oracle.TTL))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create signer", err)
	}
	logger.Debug("oracle signer ready", "oracle_key", cfg.OracleKey.String(), "ttl", cfg.Oracle.TTL)
	return signer, nil
}

type oracleSignOptions struct {
	*OracleOptions
	User  string
	Proof string
	Out   string
}

// AttestationResult wraps an attestation for text output.
type AttestationResult struct {
	oracle.Attestation
	Path string `json:"path,omitempty"`
}

// Text implements Texter.
func (r AttestationResult) Text() string {
	s := fmt.Sprintf("attested day %d for %s\n  nonce:      %s\n  expires at: %d",
		r.Day, r.User, r.Nonce, r.ExpiresAt)
	if r.Path != "" {
		s += "\n  written to: " + r.Path
	}
	return s
}

func newOracleSignCommand(parent *OracleOptions) *cobra.Command {
	opts := &oracleSignOptions{OracleOptions: parent}

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Attest one session proof",
		Long: `Validate a session proof and sign an attestation for the day it completed.

Example:
  cavityproof oracle sign --user <pubkey> --proof proof.json --out att.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOracleSign(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "user public key, base58 (required)")
	cmd.Flags().StringVarP(&opts.Proof, "proof", "p", "", "session proof JSON file (required)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the attestation JSON to this file")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("proof")

	return cmd
}

func runOracleSign(opts *oracleSignOptions, cmd *cobra.Command) error {
	user, err := ir.ParsePubkey(opts.User)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --user", err)
	}
	proof, err := readProof(opts.Proof)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load proof", err)
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger, logs, err := setupLogging(opts.RootOptions, cfg, "oracle")
	if err != nil {
		return err
	}
	defer logs.Close()

	signer, err := loadSigner(opts.OracleOptions, cfg, logger)
	if err != nil {
		return err
	}

	f := opts.formatter(cmd)
	att, err := signer.AttestSession(user, proof)
	if err != nil {
		if outErr := f.Error("INVALID_PROOF", err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "attestation refused", err)
	}

	result := AttestationResult{Attestation: att}
	if opts.Out != "" {
		data, err := json.MarshalIndent(att, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.Out, data, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write attestation", err)
		}
		result.Path = opts.Out
	}
	return f.Success(result)
}

// readProof decodes a session proof, rejecting unknown fields.
func readProof(path string) (oracle.SessionProof, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return oracle.SessionProof{}, err
	}
	var proof oracle.SessionProof
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&proof); err != nil {
		return oracle.SessionProof{}, fmt.Errorf("proof %s: %w", path, err)
	}
	return proof, nil
}

type oracleServeOptions struct {
	*OracleOptions
	Listen string
}

func newOracleServeCommand(parent *OracleOptions) *cobra.Command {
	opts := &oracleServeOptions{OracleOptions: parent}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve attestations over HTTP",
		Long: `Run the oracle HTTP service.

Routes:
  GET  /healthz      liveness
  GET  /metrics      Prometheus metrics
  GET  /v1/oracle    oracle key and attestation TTL
  POST /v1/attest    {"user": <pubkey>, "proof": {...}} -> attestation

Example:
  cavityproof oracle serve --listen 127.0.0.1:8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOracleServe(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Listen, "listen", "l", "", "listen address (default: oracle.listen from config)")

	return cmd
}

func runOracleServe(opts *oracleServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger, logs, err := setupLogging(opts.RootOptions, cfg, "oracle")
	if err != nil {
		return err
	}
	defer logs.Close()

	signer, err := loadSigner(opts.OracleOptions, cfg, logger)
	if err != nil {
		return err
	}
	srv := oracle.NewServer(signer,
		oracle.WithServerLogger(logger),
		oracle.WithRateLimit(oracle.RateLimit{
			RequestsPerMinute: cfg.Oracle.RatePerMinute,
			Burst:             cfg.Oracle.Burst,
		}),
	)

	addr := opts.Listen
	if addr == "" {
		addr = cfg.Oracle.Listen
	}

	ctx, cancel := context.WithCancel(ctxOf(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Oracle %s listening on %s\n", signer.PublicKey(), addr)
	if err := srv.Serve(ctx, addr); err != nil {
		return WrapExitError(ExitFailure, "oracle server error", err)
	}
	logger.Info("oracle stopped gracefully")
	return nil
}
