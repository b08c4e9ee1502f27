package main

import (
	"fmt"

	"github.com/go-extras/go-kit/must"
	"github.com/spf13/cobra"

	"bugboard/internal/app"
	"bugboard/internal/core/config"
	"bugboard/internal/core/database"
	"bugboard/internal/core/logger"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update all tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := must.Must(config.Read(configPath))
			cfg.DB.AutoMigrate = false
			log, cleanup := logger.FromConfig(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File)
			defer cleanup()

			db, err := app.OpenDB(cfg, log)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables (%s)\n", len(database.Models()), cfg.DB.Driver)
			return nil
		},
	}
}
