package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/config"
	"github.com/foryou-care/foryou/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBMigrateCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "migrate",
		Aliases: []string{"init"},
		Short:   "Create or update the database schema",
		Long:    "Connects to the configured database and migrates all ForYou tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foryou.yaml", "path to ForYou config file")
	return cmd
}

func runDBMigrate(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if cfg.Database.Path != "" {
		fmt.Fprintf(out, "Migrated sqlite database at %s\n", cfg.Database.Path)
	} else {
		fmt.Fprintf(out, "Migrated database %s at %s:%d\n", cfg.Database.Database, cfg.Database.Host, cfg.Database.Port)
	}
	return nil
}

// connectFromConfig loads the config file and opens the database it
// points at. A non-empty database.path selects a local sqlite file,
// otherwise the MySQL settings are used.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	var gormDB *gorm.DB
	if cfg.Database.Path != "" {
		gormDB, err = db.ConnectLocal(cfg.Database.Path)
	} else {
		gormDB, err = db.Connect(cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	return cfg, gormDB, nil
}
