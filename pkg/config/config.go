// Package config loads fleet-server settings from defaults, an optional YAML
// file, FLEET_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/passssat/fleet-registry/pkg/audit"
	"github.com/passssat/fleet-registry/pkg/cache"
	"github.com/passssat/fleet-registry/pkg/jobs"
	"github.com/passssat/fleet-registry/pkg/store"
)

// EnvPrefix prefixes every environment override, e.g. FLEET_DATABASE_DSN.
const EnvPrefix = "FLEET"

type Database struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
	// MigrationLock serializes schema migration across replicas.
	MigrationLock bool `mapstructure:"migration_lock"`
	MaxOpenConns  int  `mapstructure:"max_open_conns"`
	Debug         bool `mapstructure:"debug"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Audit struct {
	Enabled       bool `mapstructure:"enabled"`
	RetentionDays int  `mapstructure:"retention_days"`
}

type CORS struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the complete server configuration.
type Config struct {
	Listen   string   `mapstructure:"listen"`
	Database Database `mapstructure:"database"`
	Log      Log      `mapstructure:"log"`
	Audit    Audit    `mapstructure:"audit"`
	CORS     CORS     `mapstructure:"cors"`
	Metrics  Metrics  `mapstructure:"metrics"`

	// Cache configures the response cache of the read-mostly endpoints.
	Cache cache.Config `mapstructure:"cache"`
	// Jobs configures the asynchronous import queue.
	Jobs jobs.Config `mapstructure:"jobs"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	auditDefaults := audit.DefaultConfig()
	cacheDefaults := cache.DefaultConfig()
	jobDefaults := jobs.DefaultConfig()
	v.SetDefault("listen", ":8080")
	v.SetDefault("database.type", store.TypeSQLite)
	v.SetDefault("database.dsn", "fleet.db")
	v.SetDefault("database.migration_lock", true)
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("audit.enabled", auditDefaults.Enabled)
	v.SetDefault("audit.retention_days", auditDefaults.RetentionDays)
	v.SetDefault("cors.allowed_origins", []string{"https://*", "http://*"})
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("cache.enabled", cacheDefaults.Enabled)
	v.SetDefault("cache.ttl", cacheDefaults.TTL)
	v.SetDefault("cache.max_entries", cacheDefaults.MaxEntries)
	v.SetDefault("jobs.enabled", jobDefaults.Enabled)
	v.SetDefault("jobs.concurrency", jobDefaults.Concurrency)
	v.SetDefault("jobs.max_attempts", jobDefaults.MaxAttempts)
	v.SetDefault("jobs.poll_interval", jobDefaults.PollInterval)
	v.SetDefault("jobs.claim_timeout", jobDefaults.ClaimTimeout)
	v.SetDefault("jobs.retention_days", jobDefaults.RetentionDays)
}

// BindFlags declares the server flags on fs and binds them to v. Only flags
// the user actually sets override file and environment values.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("listen", ":8080", "HTTP listen address")
	fs.String("db-type", store.TypeSQLite, "database type: sqlite, postgres or mysql")
	fs.String("db-dsn", "fleet.db", "database DSN, or file path for sqlite")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("log-format", "text", "log format: text or json")

	for key, flag := range map[string]string{
		"listen":        "listen",
		"database.type": "db-type",
		"database.dsn":  "db-dsn",
		"log.level":     "log-level",
		"log.format":    "log-format",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path and decodes every setting.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found at %s", path)
			}
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Type) {
	case store.TypeSQLite, store.TypePostgres, "postgresql", store.TypeMySQL:
	default:
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log.format %q", c.Log.Format)
	}
	if c.Audit.RetentionDays < 0 {
		return errors.New("audit.retention_days must not be negative")
	}
	if c.Cache.Enabled && c.Cache.MaxEntries < 1 {
		return errors.New("cache.max_entries must be positive when the cache is enabled")
	}
	return c.Jobs.Validate()
}

// Store returns the database settings in the form the store package takes.
func (c *Config) Store() store.Config {
	return store.Config{
		Type:         c.Database.Type,
		DSN:          c.Database.DSN,
		Debug:        c.Database.Debug,
		MaxOpenConns: c.Database.MaxOpenConns,
	}
}

// AuditConfig returns the audit middleware settings.
func (c *Config) AuditConfig() audit.Config {
	return audit.Config{Enabled: c.Audit.Enabled, RetentionDays: c.Audit.RetentionDays}
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unsupported log.level %q", s)
	}
	return l, nil
}

// NewLogger builds the process logger described by c.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
