package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tourdesk/service-booking/internal/common/database"
	"github.com/tourdesk/service-booking/internal/common/logger"
	"github.com/tourdesk/service-booking/internal/config"
	"github.com/tourdesk/service-booking/internal/repository"
)

const serviceName = "service-booking"

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	migrationsDir string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "service-booking",
		Short:         "Tour booking request service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.migrationsDir, "migrations", "migrations", "directory holding SQL migrations")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), opts.migrationsDir, log); err != nil {
				return err
			}

			db, err := database.Connect(cfg.DBConfig.DSN(), log)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer func() { _ = sqlDB.Close() }()
			}
			_, err = repository.NewGormProductRepository(db).NormalizeLegacyLists(cmd.Context(), log)
			return err
		},
	}
}

// bootstrap loads configuration and builds the root logger.
func bootstrap() (*config.ServiceConfig, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.AppEnv, serviceName, logger.Options{
		Level:    cfg.Log.Level,
		FilePath: cfg.Log.FilePath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}
