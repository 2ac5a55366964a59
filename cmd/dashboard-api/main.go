package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/civicwatch/internal/api"
	"github.com/edvin/civicwatch/internal/config"
	"github.com/edvin/civicwatch/internal/db"
	"github.com/edvin/civicwatch/internal/logging"
	"github.com/edvin/civicwatch/internal/media"
	"github.com/edvin/civicwatch/internal/metrics"
	"github.com/edvin/civicwatch/internal/notify"
	"github.com/edvin/civicwatch/internal/realtime"
	"github.com/edvin/civicwatch/internal/sop"
	"github.com/edvin/civicwatch/internal/store"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "", "Migration files directory (default: embedded)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("dashboard-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag && cfg.StoreDriver == config.DriverPostgres {
		dir := *migrateDirFlag
		if dir == "" {
			dir = cfg.MigrationsDir
		}
		logger.Info().Str("dir", dir).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, dir); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := store.Open(ctx, cfg, store.Options{Registerer: prometheus.DefaultRegisterer}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	checks := map[string]api.Check{}
	if backend.Ping != nil {
		checks[backend.Driver] = backend.Ping
	}

	catalog, err := sop.Load(cfg.SOPCatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load SOP catalog")
	}

	var uploader media.Uploader
	if cfg.MediaEnabled() {
		uploader = media.NewS3Uploader(media.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		}, logger)
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("media uploads enabled")
	}

	alerts := notify.NewChannels(logger)
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start telegram notifier")
		}
		alerts.Register(notify.ChannelTelegram, tg)
	}

	hub := realtime.NewHub(logger)

	srv := api.NewServer(logger, cfg, api.Deps{
		Store:    backend,
		Hub:      hub,
		Catalog:  catalog,
		Uploader: uploader,
		Alerts:   alerts,
		Checks:   checks,
	})

	bg, bgCtx := errgroup.WithContext(ctx)
	bg.Go(func() error {
		return realtime.NewSimulator(hub, cfg.SimulatorInterval, logger).Run(bgCtx)
	})
	bg.Go(func() error {
		return realtime.RunStatusAlerts(bgCtx, hub, cfg.AlertInterval, time.Now)
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Str("store", cfg.StoreDriver).Msg("starting dashboard API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsListenAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsListenAddr, prometheus.DefaultGatherer, backend.Ping)
		go func() {
			logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	cancel()
	if err := bg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("background task failed")
	}

	// Streams only end once the hub closes their subscriptions.
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	srv.Close()
	if err := backend.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("store close")
	}
}
