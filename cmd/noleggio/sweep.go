package main

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/erazemk/noleggio/internal/catalog"
	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/objects"
	"github.com/erazemk/noleggio/internal/store"
)

func newSweepCmd() *cobra.Command {
	var apply bool
	var minAge time.Duration

	flags := dbFlags()
	flags[storageFlag] = &cobraflags.StringFlag{
		Name:  storageFlag,
		Value: "",
		Usage: "object storage backend (default: db)",
	}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Find and remove images no catalog item references",
		Long: `Sweep lists the objects of the image bucket that no inventory or portfolio
row points at: uploads whose row write failed and replaced images whose
removal failed. Nothing is removed without --apply.

Objects younger than --min-age are skipped, since their row may still be
being written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, apply, minAge)
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().BoolVar(&apply, "apply", false, "remove the orphaned objects")
	cmd.Flags().DurationVar(&minAge, "min-age", time.Hour, "skip objects uploaded more recently than this")
	return cmd
}

func runSweep(cmd *cobra.Command, apply bool, minAge time.Duration) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closeLog, err := setupLogger(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := openDatabase(cfg, false)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	objs, err := openObjectStore(cfg, database)
	if err != nil {
		return err
	}
	lister, ok := objs.(objects.Lister)
	if !ok {
		return fmt.Errorf("storage backend %q cannot list objects", cfg.Storage.Backend)
	}

	ctx := cmd.Context()
	names, err := lister.List(ctx, objects.Bucket)
	if err != nil {
		return fmt.Errorf("listing objects: %w", err)
	}
	urls, err := imageReferences(ctx, database)
	if err != nil {
		return fmt.Errorf("listing image references: %w", err)
	}

	orphans := findOrphans(names, urls, time.Now().Add(-minAge))
	out := cmd.OutOrStdout()
	for _, name := range orphans {
		fmt.Fprintln(out, name)
	}

	if !apply {
		fmt.Fprintf(out, "%d of %d objects are orphaned. Run with --apply to remove them.\n", len(orphans), len(names))
		return nil
	}
	if len(orphans) == 0 {
		fmt.Fprintln(out, "Nothing to remove.")
		return nil
	}
	if err := objs.Remove(ctx, objects.Bucket, orphans); err != nil {
		return fmt.Errorf("removing orphaned objects: %w", err)
	}
	slog.Info("orphaned objects removed", "count", len(orphans))
	fmt.Fprintf(out, "Removed %d objects.\n", len(orphans))
	return nil
}

// imageReferences collects every stored URL that may point into the bucket:
// catalog images and the company logo.
func imageReferences(ctx context.Context, database *db.DB) ([]string, error) {
	urls, err := (&store.Catalog{DB: database}).ImageURLs(ctx)
	if err != nil {
		return nil, err
	}
	company, err := store.GetCompanySettings(ctx, database)
	if err != nil {
		return nil, err
	}
	if company.CompanyLogo != "" {
		urls = append(urls, company.CompanyLogo)
	}
	return urls, nil
}

// findOrphans returns the names no managed url refers to, leaving out those
// uploaded after cutoff. Names whose upload time cannot be read are old.
func findOrphans(names, urls []string, cutoff time.Time) []string {
	referenced := make(map[string]bool, len(urls))
	for _, u := range urls {
		if name, ok := catalog.ObjectNameFromURL(u); ok {
			referenced[name] = true
		}
	}

	var orphans []string
	for _, name := range names {
		if referenced[name] {
			continue
		}
		if at, ok := uploadedAt(name); ok && at.After(cutoff) {
			continue
		}
		orphans = append(orphans, name)
	}
	return orphans
}

// uploadedAt reads the upload time from a {token}-{unixMillis}.{ext} name.
func uploadedAt(name string) (time.Time, bool) {
	stem := strings.TrimSuffix(name, path.Ext(name))
	i := strings.LastIndexByte(stem, '-')
	if i < 0 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(stem[i+1:], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
