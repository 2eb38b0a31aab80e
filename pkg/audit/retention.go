package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Prune deletes events recorded more than days before now and returns how
// many were removed. A non-positive days keeps everything.
func (s *Store) Prune(ctx context.Context, now time.Time, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -days)
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Event{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune audit events before %s: %w", cutoff.Format(time.RFC3339), res.Error)
	}
	return res.RowsAffected, nil
}

// Retention prunes the audit trail on a schedule.
type Retention struct {
	store    *Store
	cfg      Config
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewRetention prunes store according to cfg once a day.
func NewRetention(store *Store, cfg Config, logger *slog.Logger) *Retention {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retention{
		store:    store,
		cfg:      cfg,
		interval: 24 * time.Hour,
		now:      time.Now,
		logger:   logger.With("component", "audit-retention"),
	}
}

// Run prunes immediately and then once per interval until ctx is done.
func (r *Retention) Run(ctx context.Context) {
	if r.store == nil || !r.cfg.Enabled || r.cfg.RetentionDays <= 0 {
		r.logger.Info("audit retention disabled", "retentionDays", r.cfg.RetentionDays)
		return
	}
	r.logger.Info("audit retention started",
		"retentionDays", r.cfg.RetentionDays,
		"interval", r.interval.String())
	every(ctx, r.interval, func() { r.Prune(ctx) })
	r.logger.Info("audit retention stopped")
}

// Prune runs one retention pass and returns the number of deleted events.
func (r *Retention) Prune(ctx context.Context) int64 {
	deleted, err := r.store.Prune(ctx, r.now(), r.cfg.RetentionDays)
	if err != nil {
		r.logger.Error("audit retention pass failed", "error", err)
		return 0
	}
	if deleted > 0 {
		r.logger.Info("pruned audit events", "deleted", deleted)
	}
	return deleted
}

// every calls fn at once and then on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	fn()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
