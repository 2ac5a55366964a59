package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvin/civicwatch/internal/config"
	"github.com/edvin/civicwatch/internal/db"
)

var migrateFlags struct {
	dir string
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending Postgres migrations",
	RunE:  runMigrate,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied state of every migration",
	RunE:  runMigrateStatus,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFlags.dir, "dir", "", "Migration files directory (default: embedded)")
	migrateCmd.AddCommand(migrateStatusCmd)
}

func postgresOnly(cfg *config.Config) error {
	if cfg.StoreDriver != config.DriverPostgres {
		return errors.New("migrations only apply to the postgres store")
	}
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := postgresOnly(cfg); err != nil {
		return err
	}
	dir := migrateFlags.dir
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	logger.Info().Str("dir", dir).Msg("running database migrations")
	if err := db.RunMigrations(cfg.DatabaseURL, dir); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := postgresOnly(cfg); err != nil {
		return err
	}
	return db.MigrationStatus(cfg.DatabaseURL)
}
