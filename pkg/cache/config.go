package cache

import "time"

// Config controls the response cache.
type Config struct {
	// Enabled turns caching on. A disabled cache is a nil *Cache and every
	// request passes straight through.
	Enabled bool `mapstructure:"enabled"`

	// TTL bounds how long a response may be served after it was stored.
	// Writes through the same process purge earlier than that.
	TTL time.Duration `mapstructure:"ttl"`

	// MaxEntries caps the number of stored responses.
	MaxEntries int `mapstructure:"max_entries"`
}

// DefaultConfig returns the configuration fleet-server starts with.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		TTL:        30 * time.Second,
		MaxEntries: 512,
	}
}

// FromConfig builds a cache for cfg, or returns nil when caching is off.
func FromConfig(cfg Config) *Cache {
	if !cfg.Enabled {
		return nil
	}
	return New(cfg.MaxEntries, cfg.TTL)
}
