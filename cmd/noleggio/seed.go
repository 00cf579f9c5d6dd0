package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/erazemk/noleggio/internal/catalog"
	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/store"
)

// seedFile is the layout of a seed document:
//
//	inventario:
//	  - title: Cassa attiva 12"
//	    category: Diffusori Audio
//	    location: Roma
//	    stock: 8
//	    price: 45.00
//	    image: images/cassa.jpg
//	portfolio:
//	  - title: Concerto in piazza
//	    category: PROGETTI
type seedFile struct {
	Inventory []seedItem `yaml:"inventario"`
	Portfolio []seedItem `yaml:"portfolio"`
}

type seedItem struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Location    string `yaml:"location"`
	Stock       *int   `yaml:"stock"`
	Status      string `yaml:"status"`
	// Price is the daily rental price, inventory only.
	Price string `yaml:"price"`
	// Image is a file path relative to the seed file.
	Image string `yaml:"image"`
}

// seedEntry is a validated item ready to submit.
type seedEntry struct {
	Kind   model.Kind
	Fields catalog.Fields
	Price  *decimal.Decimal
	Image  string
}

// parseSeed decodes and validates a seed document. Unset fields take the
// defaults of a new item.
func parseSeed(r io.Reader) ([]seedEntry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc seedFile
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding seed file: %w", err)
	}

	var entries []seedEntry
	for _, group := range []struct {
		kind  model.Kind
		items []seedItem
	}{
		{model.KindInventory, doc.Inventory},
		{model.KindPortfolio, doc.Portfolio},
	} {
		for i, it := range group.items {
			f := catalog.DefaultFields(group.kind)
			f.Title = strings.TrimSpace(it.Title)
			f.Description = it.Description
			if it.Category != "" {
				f.Category = it.Category
			}
			if group.kind == model.KindInventory {
				if it.Location != "" {
					f.Location = it.Location
				}
				if it.Status != "" {
					f.Status = it.Status
				}
			}
			if it.Stock != nil {
				f.Stock = *it.Stock
			}
			if err := f.Validate(group.kind); err != nil {
				return nil, fmt.Errorf("%s item %d: %w", group.kind, i+1, err)
			}
			e := seedEntry{Kind: group.kind, Fields: f, Image: it.Image}
			if it.Price != "" {
				price, err := parsePrice(group.kind, it.Price)
				if err != nil {
					return nil, fmt.Errorf("%s item %d: price: %w", group.kind, i+1, err)
				}
				e.Price = &price
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func parsePrice(kind model.Kind, s string) (decimal.Decimal, error) {
	if kind != model.KindInventory {
		return decimal.Zero, errors.New("only inventory items have a price")
	}
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if price.IsNegative() {
		return decimal.Zero, errors.New("must not be negative")
	}
	return price, nil
}

// loadUpload reads an image referenced by a seed file.
func loadUpload(dir, file string) (*catalog.Upload, error) {
	p := file
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return &catalog.Upload{
		Filename:    filepath.Base(p),
		ContentType: mime.TypeByExtension(filepath.Ext(p)),
		Data:        data,
	}, nil
}

func newSeedCmd() *cobra.Command {
	var dryRun bool

	flags := dbFlags()
	flags[storageFlag] = &cobraflags.StringFlag{
		Name:  storageFlag,
		Value: "",
		Usage: "object storage backend (default: db)",
	}

	cmd := &cobra.Command{
		Use:   "seed FILE.yaml",
		Short: "Import catalog items from a YAML file",
		Long: `Seed inserts the inventory and portfolio items listed in a YAML file.
Images are processed and uploaded like those sent from the admin panel.
The whole file is validated before anything is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args[0], dryRun)
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing anything")
	return cmd
}

func runSeed(cmd *cobra.Command, file string, dryRun bool) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	entries, err := parseSeed(f)
	f.Close()
	if err != nil {
		return err
	}

	dir := filepath.Dir(file)
	uploads := make([]*catalog.Upload, len(entries))
	for i, e := range entries {
		if e.Image == "" {
			continue
		}
		if uploads[i], err = loadUpload(dir, e.Image); err != nil {
			return fmt.Errorf("%s item %q: reading image: %w", e.Kind, e.Fields.Title, err)
		}
	}

	out := cmd.OutOrStdout()
	if dryRun {
		fmt.Fprintf(out, "%d items are valid.\n", len(entries))
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closeLog, err := setupLogger(out, cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := openDatabase(cfg, cfg.DB.AutoMigrate)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	objs, err := openObjectStore(cfg, database)
	if err != nil {
		return err
	}
	svc := newCatalogService(cfg, database, objs)

	ctx := cmd.Context()
	for i, e := range entries {
		form := catalog.NewForm(e.Kind, nil)
		form.Fields = e.Fields
		if uploads[i] != nil {
			form.Stage(uploads[i])
		}
		item, err := svc.Submit(ctx, form)
		if err != nil {
			return fmt.Errorf("importing %s item %q (%d of %d done): %w", e.Kind, e.Fields.Title, i, len(entries), err)
		}
		if e.Price != nil {
			if err := store.SetProductPrice(ctx, database, item.ID, *e.Price); err != nil {
				return fmt.Errorf("setting price of %q: %w", item.Title, err)
			}
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", item.Kind, item.ID, item.Title)
	}

	slog.Info("seed imported", "file", file, "items", len(entries))
	return nil
}
