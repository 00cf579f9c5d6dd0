package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/erazemk/noleggio/internal/auth"
	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/store"
)

const adminUserFlag = "user"

func newInitCmd() *cobra.Command {
	flags := dbFlags()
	flags[adminUserFlag] = &cobraflags.StringFlag{
		Name:  adminUserFlag,
		Value: "",
		Usage: "admin username (default: Admin)",
	}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database schema and the first admin account",
		Long: `Init creates every table and an admin account with a random password.
The password is printed once and cannot be recovered.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
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
		return fmt.Errorf("initializing database: %w", err)
	}
	defer database.Close()

	ctx := cmd.Context()
	username := cfg.Admin.Username

	existing, err := store.GetUserByUsername(ctx, database, username)
	if err != nil {
		return err
	}
	if existing != nil && existing.DeletedAt == nil {
		return fmt.Errorf("user %q already exists", username)
	}

	password, err := auth.GeneratePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if _, err := store.CreateUser(ctx, database, username, hash, model.RoleAdmin); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("admin user created", "user", username)
	printInitResult(cmd.OutOrStdout(), cfg.DB.DSN, username, password)
	return nil
}

// printInitResult prints the database initialization result.
func printInitResult(w io.Writer, dsn, username, password string) {
	fmt.Fprintf(w, "Database ready: %s\n", dsn)
	fmt.Fprintln(w, "Schema initialized.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Admin account created:")
	fmt.Fprintf(w, "  Username: %s\n", username)
	fmt.Fprintf(w, "  Password: %s\n", password)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save this password, it cannot be recovered.")
	fmt.Fprintln(w, "The admin can change it after logging in.")
}
