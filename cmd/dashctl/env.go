package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edvin/civicwatch/internal/config"
	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/logging"
	"github.com/edvin/civicwatch/internal/sop"
	"github.com/edvin/civicwatch/internal/store"
)

// loadConfig reads and validates the environment. Logs go to the command's
// stderr.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate("dashctl"); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, logging.NewLoggerTo(cmd.ErrOrStderr(), cfg), nil
}

// openServices opens the configured store and builds the core services on it.
// The caller closes the returned backend.
func openServices(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*core.Services, *store.Backend, error) {
	backend, err := store.Open(ctx, cfg, store.Options{}, logger)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := sop.Load(cfg.SOPCatalogPath)
	if err != nil {
		_ = backend.Close(ctx)
		return nil, nil, fmt.Errorf("load SOP catalog: %w", err)
	}
	svc := core.NewServices(backend, core.Options{
		Tau:     cfg.DecayTau,
		Catalog: catalog,
		Logger:  logger,
	})
	return svc, backend, nil
}
