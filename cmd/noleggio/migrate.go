package main

import (
	"fmt"
	"log/slog"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/erazemk/noleggio/internal/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and apply schema migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
	cobraflags.RegisterMap(cmd, dbFlags())
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closeLog, err := setupLogger(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := openDatabase(cfg, true)
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	defer database.Close()

	slog.Info("database schema up to date", "driver", cfg.DB.Driver, "tables", len(db.Tables()))
	return nil
}
