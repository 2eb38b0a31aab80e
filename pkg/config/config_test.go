package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "fleet.db", cfg.Database.DSN)
	assert.True(t, cfg.Database.MigrationLock)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, []string{"https://*", "http://*"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 512, cfg.Cache.MaxEntries)
	assert.True(t, cfg.Jobs.Enabled)
	assert.Equal(t, 2, cfg.Jobs.Concurrency)
	assert.Equal(t, 10*time.Minute, cfg.Jobs.ClaimTimeout)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
database:
  type: postgres
  dsn: host=db user=fleet
log:
  level: debug
  format: json
audit:
  retention_days: 30
cache:
  ttl: 5s
  max_entries: 16
jobs:
  concurrency: 4
  poll_interval: 500ms
`), 0o600))
	t.Setenv("FLEET_DATABASE_DSN", "host=env user=fleet")

	v := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--listen", ":7000"}))

	cfg, err := Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen, "flag wins over file")
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "host=env user=fleet", cfg.Database.DSN, "env wins over file")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 30, cfg.Audit.RetentionDays)
	assert.Equal(t, 5*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 16, cfg.Cache.MaxEntries)
	assert.Equal(t, 4, cfg.Jobs.Concurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.Jobs.PollInterval)

	level, err := ParseLevel(cfg.Log.Level)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	assert.Equal(t, "postgres", cfg.Store().Type)
	assert.Equal(t, 30, cfg.AuditConfig().RetentionDays)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "config file not found")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad db type", func(c *Config) { c.Database.Type = "oracle" }, "unsupported database.type"},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn is required"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "unsupported log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "unsupported log.format"},
		{"negative retention", func(c *Config) { c.Audit.RetentionDays = -1 }, "must not be negative"},
		{"empty cache", func(c *Config) { c.Cache.MaxEntries = 0 }, "cache.max_entries must be positive"},
		{"no import workers", func(c *Config) { c.Jobs.Concurrency = 0 }, "jobs.concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(New(), "")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}
