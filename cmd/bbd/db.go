package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/macdems/buildbot/internal/buildrequests"
	"github.com/macdems/buildbot/internal/buildsets"
	"github.com/macdems/buildbot/internal/config"
	"github.com/macdems/buildbot/internal/db"
)

// connectFromConfig loads configuration and opens the configured database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	var gormDB *gorm.DB
	switch cfg.Database.Driver {
	case "sqlite":
		gormDB, err = db.ConnectSQLite(cfg.Database.Path)
	default:
		gormDB, err = db.Connect(cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	}
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// openStore opens the database and builds the buildset store over it.
func openStore(configPath string) (*config.Config, *gorm.DB, *buildsets.Store, error) {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := buildsets.NewStore(gormDB, nil, buildrequests.NewCreator(), cfg.CacheSize)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, gormDB, store, nil
}

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
		Use:   "migrate",
		Short: "Create or update all tables and seed builders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "master.yaml", "path to master config file")
	return cmd
}

func runDBMigrate(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedBuilders(gormDB, cfg.Builders); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d builders\n", len(cfg.Builders))
	return nil
}
