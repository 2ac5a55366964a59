// Package store opens the core.Store selected by STORE_DRIVER.
package store

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/config"
	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/db"
	"github.com/edvin/civicwatch/internal/metrics"
	"github.com/edvin/civicwatch/internal/store/docstore"
	"github.com/edvin/civicwatch/internal/store/memstore"
	"github.com/edvin/civicwatch/internal/store/pgstore"
)

// Backend is an opened store. Ping is nil for the in-memory driver.
type Backend struct {
	core.Store
	Driver string
	Ping   func(ctx context.Context) error
}

// Options tune Open.
type Options struct {
	// Registerer receives the pgxpool gauges. Nil skips registration.
	Registerer prometheus.Registerer
}

// Open connects the configured driver.
func Open(ctx context.Context, cfg *config.Config, opts Options, logger zerolog.Logger) (*Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if opts.Registerer != nil {
			if err := metrics.RegisterPgxPoolMetrics(opts.Registerer, pool); err != nil {
				logger.Warn().Err(err).Msg("pgxpool metrics not registered")
			}
		}
		logger.Info().Int32("max_conns", cfg.DatabaseMaxConns).Msg("connected to postgres")
		return &Backend{
			Store:  &pooled{Store: pgstore.New(pool), closePool: pool.Close},
			Driver: config.DriverPostgres,
			Ping:   pool.Ping,
		}, nil
	case config.DriverMongo:
		s, err := docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: s, Driver: config.DriverMongo, Ping: s.Ping}, nil
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		return &Backend{Store: memstore.New(), Driver: config.DriverMemory}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// pooled closes the pgx pool along with the store.
type pooled struct {
	*pgstore.Store
	closePool func()
}

func (p *pooled) Close(ctx context.Context) error {
	err := p.Store.Close(ctx)
	p.closePool()
	return err
}
