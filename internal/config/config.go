// Package config loads server configuration from defaults, an optional
// noleggio.yaml, NOLEGGIO_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"

	"github.com/erazemk/noleggio/internal/catalog"
	"github.com/erazemk/noleggio/internal/db"
)

// EnvPrefix prefixes every environment variable, e.g. NOLEGGIO_DB_DSN.
const EnvPrefix = "NOLEGGIO"

// Storage backends.
const (
	StorageDB         = "db"
	StorageCloudinary = "cloudinary"
)

// Config is the full server configuration.
type Config struct {
	Addr    string `mapstructure:"addr" default:":8080"`
	BaseURL string `mapstructure:"base_url" default:"http://localhost:8080"`
	Log     string `mapstructure:"log"`

	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Images  ImagesConfig  `mapstructure:"images"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

// DBConfig selects the row store. For mysql the DSN needs parseTime=true.
type DBConfig struct {
	Driver      string `mapstructure:"driver" default:"sqlite"`
	DSN         string `mapstructure:"dsn" default:"noleggio.sqlite3"`
	AutoMigrate bool   `mapstructure:"auto_migrate" default:"true"`
}

// StorageConfig selects the object store.
type StorageConfig struct {
	Backend       string `mapstructure:"backend" default:"db"`
	CloudinaryURL string `mapstructure:"cloudinary_url"`
}

// RedisConfig enables realtime fan-out across processes and login rate
// limiting. Both are off when Addr is empty.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ImagesConfig controls upload processing.
type ImagesConfig struct {
	Process      bool `mapstructure:"process" default:"true"`
	MaxDimension int  `mapstructure:"max_dimension" default:"1600"`
	Quality      int  `mapstructure:"quality" default:"85"`
}

// CleanupConfig names the policy for removing replaced images.
type CleanupConfig struct {
	Policy string `mapstructure:"policy" default:"best-effort"`
}

// AuthConfig configures tokens. An empty JWTSecret means the secret stored
// in the database is used.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" default:"168h"`
}

// AdminConfig is used by "noleggio init".
type AdminConfig struct {
	Username string `mapstructure:"username" default:"Admin"`
}

// Keys lists every configuration key, so each can be set from the environment.
var Keys = []string{
	"addr", "base_url", "log",
	"db.driver", "db.dsn", "db.auto_migrate",
	"storage.backend", "storage.cloudinary_url",
	"redis.addr", "redis.password", "redis.db",
	"images.process", "images.max_dimension", "images.quality",
	"cleanup.policy",
	"auth.jwt_secret", "auth.token_ttl",
	"admin.username",
}

// NewViper returns a viper instance wired to the environment and, when
// present, the config file. An empty file means noleggio.yaml in the
// working directory, which may be absent.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range Keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
		return v, nil
	}

	v.SetConfigName("noleggio")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// Load decodes v over the defaults and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be caught by decoding.
func (c *Config) Validate() error {
	if _, ok := db.Drivers[c.DB.Driver]; !ok {
		return fmt.Errorf("db.driver: unsupported driver %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return errors.New("db.dsn: required")
	}
	switch c.Storage.Backend {
	case StorageDB:
	case StorageCloudinary:
		if c.Storage.CloudinaryURL == "" {
			return errors.New("storage.cloudinary_url: required for the cloudinary backend")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if _, err := catalog.ParseCleanupPolicy(c.Cleanup.Policy); err != nil {
		return fmt.Errorf("cleanup.policy: %w", err)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl: must be positive")
	}
	return nil
}

// CleanupPolicy returns the parsed cleanup policy. Validate has checked it.
func (c *Config) CleanupPolicy() catalog.CleanupPolicy {
	p, _ := catalog.ParseCleanupPolicy(c.Cleanup.Policy)
	return p
}
