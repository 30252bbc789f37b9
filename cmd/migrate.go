package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"techservice/internal/db"
	"techservice/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var createDatabase bool

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply the schema",
	RunE:  runMigrateUp,
}

func init() {
	migrateUpCmd.Flags().BoolVar(&createDatabase, "create-db", false, "create the target database if it does not exist")
	migrateCmd.AddCommand(migrateUpCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log, cfg.Environment)

	if createDatabase {
		if err := db.EnsureDatabase(cfg.DB.DSN, log); err != nil {
			return fmt.Errorf("ensure database: %w", err)
		}
	}

	cfg.DB.AutoMigrate = false
	database, err := db.New(cfg, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info().Msg("migrate up: ok")
	return nil
}
