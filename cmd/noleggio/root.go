package main

import (
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/erazemk/noleggio/internal/catalog"
	"github.com/erazemk/noleggio/internal/config"
	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/imaging"
	"github.com/erazemk/noleggio/internal/objects"
	"github.com/erazemk/noleggio/internal/store"
)

// configFile is the --config persistent flag.
var configFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noleggio",
		Short: "Admin panel for an audio, video and lighting rental business",
		Long: `Noleggio serves the back-office of a rental business: the equipment
inventory, the portfolio of past events, contact requests and settings.

Configuration is read from noleggio.yaml (or --config), NOLEGGIO_* environment
variables and a .env file, with flags taking precedence.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./noleggio.yaml if present)")

	cmd.AddCommand(
		newServeCmd(),
		newInitCmd(),
		newMigrateCmd(),
		newSweepCmd(),
		newSeedCmd(),
	)

	return cmd
}

// Flags shared by every command that opens the database.
const (
	dbDriverFlag = "db-driver"
	dbDSNFlag    = "db"
	logFlag      = "log"
)

// dbFlags returns a fresh set of database flags for one command.
func dbFlags() map[string]cobraflags.Flag {
	return map[string]cobraflags.Flag{
		dbDriverFlag: &cobraflags.StringFlag{
			Name:  dbDriverFlag,
			Value: "",
			Usage: "database driver: sqlite, pgx, postgres or mysql (default: sqlite)",
		},
		dbDSNFlag: &cobraflags.StringFlag{
			Name:  dbDSNFlag,
			Value: "",
			Usage: "database DSN, or the file path for sqlite (default: noleggio.sqlite3)",
		},
		logFlag: &cobraflags.StringFlag{
			Name:  logFlag,
			Value: "",
			Usage: "log file path (default: no file, stdout/stderr only)",
		},
	}
}

// flagKeys maps flag names to the configuration keys they override.
var flagKeys = map[string]string{
	dbDriverFlag:  "db.driver",
	dbDSNFlag:     "db.dsn",
	logFlag:       "log",
	addrFlag:      "addr",
	baseURLFlag:   "base_url",
	storageFlag:   "storage.backend",
	redisAddrFlag: "redis.addr",
	adminUserFlag: "admin.username",
}

// loadConfig reads the configuration with the command's flags layered on
// top. Only flags set on the command line override other sources.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.NewViper(configFile)
	if err != nil {
		return nil, err
	}

	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("binding --%s: %w", name, err)
		}
	}

	return config.Load(v)
}

// openDatabase opens the configured row store, running the migrations when
// migrate is true.
func openDatabase(cfg *config.Config, migrate bool) (*db.DB, error) {
	database, err := db.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := db.Migrate(database); err != nil {
			database.Close()
			return nil, err
		}
	}
	return database, nil
}

// openObjectStore returns the configured object store.
func openObjectStore(cfg *config.Config, database *db.DB) (objects.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case config.StorageCloudinary:
		return objects.NewCloudinaryStore(cfg.Storage.CloudinaryURL, cfg.BaseURL)
	default:
		return objects.NewDBStore(database, cfg.BaseURL), nil
	}
}

// newCatalogService returns the catalog service with the configured image
// processing and cleanup policy.
func newCatalogService(cfg *config.Config, database *db.DB, objs objects.ObjectStore) *catalog.Service {
	svc := catalog.NewService(&store.Catalog{DB: database}, objs)
	svc.Policy = cfg.CleanupPolicy()
	svc.ProcessImages = cfg.Images.Process
	svc.ImageOptions = imaging.Options{
		MaxDimension:     cfg.Images.MaxDimension,
		JPEGQuality:      cfg.Images.Quality,
		KeepTransparency: true,
	}
	return svc
}

// newRedisClient returns a client for the configured Redis, or nil when
// Redis is not configured.
func newRedisClient(cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
