package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/cavityproof/internal/claim"
	"github.com/roach88/cavityproof/internal/config"
	"github.com/roach88/cavityproof/internal/ledger"
	"github.com/roach88/cavityproof/internal/logging"
	"github.com/roach88/cavityproof/internal/store"
)

// env is everything a ledger command needs, opened from the config.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	logs   io.Closer
	store  *store.Store
	ledger *ledger.Executor
	claims *claim.Processor
}

// loadConfig reads the config named by --config.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// setupLogging installs the configured logger. --verbose forces debug.
func setupLogging(opts *RootOptions, cfg config.Config, service string) (*slog.Logger, io.Closer, error) {
	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, closer, err := logging.Setup(logging.Options{
		Service:    service,
		Level:      level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	return logger, closer, nil
}

// openStore opens the configured database for reads.
func openStore(opts *RootOptions) (*store.Store, config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, config.Config{}, err
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, config.Config{}, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, cfg, nil
}

// openEnv opens the ledger with the claim program registered.
func openEnv(ctx context.Context, opts *RootOptions, claimOpts ...claim.Option) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return openLedger(ctx, opts, cfg, claimOpts...)
}

// openLedger is openEnv for an already loaded config.
func openLedger(ctx context.Context, opts *RootOptions, cfg config.Config, claimOpts ...claim.Option) (*env, error) {
	logger, logs, err := setupLogging(opts, cfg, "ledger")
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger, logs: logs}
	fail := func(msg string, err error) (*env, error) {
		_ = e.Close()
		return nil, WrapExitError(ExitCommandError, msg, err)
	}

	if e.store, err = store.Open(cfg.Database); err != nil {
		return fail("failed to open database", err)
	}
	e.ledger, err = ledger.Open(ctx, e.store,
		ledger.WithVerifierID(cfg.VerifierID),
		ledger.WithLogger(logger),
	)
	if err != nil {
		return fail("failed to open ledger", err)
	}
	e.claims, err = claim.NewProcessor(cfg.Claim(),
		append([]claim.Option{claim.WithLogger(logger)}, claimOpts...)...,
	)
	if err != nil {
		return fail("invalid claim config", err)
	}
	if err := e.claims.Register(e.ledger); err != nil {
		return fail("failed to register claim program", err)
	}
	return e, nil
}

// Close releases the database and the log sink.
func (e *env) Close() error {
	var err error
	if e.store != nil {
		if cerr := e.store.Close(); cerr != nil {
			e.logger.Error("error closing database", "error", cerr)
			err = cerr
		}
	}
	if e.logs != nil {
		if cerr := e.logs.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
