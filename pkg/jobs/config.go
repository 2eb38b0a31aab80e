package jobs

import (
	"errors"
	"time"
)

// Config controls the import queue and its workers.
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// Concurrency is the number of worker goroutines.
	Concurrency int `mapstructure:"concurrency"`
	// MaxAttempts bounds how often a job runs before it is marked failed.
	// Documents the registry rejects are never retried.
	MaxAttempts  int           `mapstructure:"max_attempts"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// ClaimTimeout is the longest a job may stay running. Running jobs
	// older than that are requeued, and the worker gives up on them.
	ClaimTimeout  time.Duration `mapstructure:"claim_timeout"`
	RetentionDays int           `mapstructure:"retention_days"`
}

// DefaultConfig returns the default import queue configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		Concurrency:   2,
		MaxAttempts:   3,
		PollInterval:  2 * time.Second,
		ClaimTimeout:  10 * time.Minute,
		RetentionDays: 7,
	}
}

// Validate rejects settings the worker pool cannot run with.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case c.Concurrency < 1:
		return errors.New("jobs.concurrency must be at least 1")
	case c.MaxAttempts < 1:
		return errors.New("jobs.max_attempts must be at least 1")
	case c.PollInterval <= 0:
		return errors.New("jobs.poll_interval must be positive")
	case c.RetentionDays < 0:
		return errors.New("jobs.retention_days must not be negative")
	}
	return nil
}
