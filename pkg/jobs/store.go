package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned for an unknown job id.
	ErrNotFound = errors.New("import job not found")
	// ErrNotCancelable is returned when canceling a job that already left
	// the queue.
	ErrNotCancelable = errors.New("only queued import jobs can be canceled")
)

// Store provides database operations for import jobs.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the import_jobs table.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&Import{})
}

// ListFilter narrows List.
type ListFilter struct {
	State       string
	RequestedBy string
}

// Enqueue stores a new queued job and reports whether it was created. When
// the job carries an idempotency key that a queued or running job already
// holds, that job is returned instead.
func (s *Store) Enqueue(ctx context.Context, job *Import) (*Import, bool, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.RequestedAt.IsZero() {
		job.RequestedAt = time.Now().UTC()
	}
	job.State = StateQueued

	if job.IdempotencyKey == nil {
		if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, false, fmt.Errorf("enqueue import job: %w", err)
		}
		return job, true, nil
	}

	var existing Import
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("idempotency_key = ? AND state IN ?", *job.IdempotencyKey, activeStates).
			Take(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check idempotency key: %w", err)
		}

		// Finished jobs release their key.
		if err := tx.Model(&Import{}).
			Where("idempotency_key = ? AND state IN ?", *job.IdempotencyKey, terminalStates).
			Update("idempotency_key", nil).Error; err != nil {
			return fmt.Errorf("release idempotency key: %w", err)
		}
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		existing, created = *job, true
		return nil
	})
	if err != nil {
		// A concurrent request may have taken the key between the check and
		// the insert.
		var raced Import
		lookup := s.db.WithContext(ctx).
			Where("idempotency_key = ? AND state IN ?", *job.IdempotencyKey, activeStates).
			Take(&raced).Error
		if lookup == nil {
			return &raced, false, nil
		}
		return nil, false, fmt.Errorf("enqueue import job: %w", err)
	}
	return &existing, created, nil
}

// Claim moves the oldest queued job to running and returns it, or returns
// nil when the queue is empty. Concurrent claimers skip rows another
// transaction holds on the dialects that support SKIP LOCKED.
func (s *Store) Claim(ctx context.Context) (*Import, error) {
	var job Import
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("state = ?", StateQueued).Order("requested_at ASC")
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Take(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		res := tx.Model(&Import{}).Where("id = ? AND state = ?", job.ID, StateQueued).
			Updates(map[string]any{
				"state":         StateRunning,
				"started_at":    time.Now().UTC(),
				"finished_at":   nil,
				"attempt_count": gorm.Expr("attempt_count + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			job = Import{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim import job: %w", err)
	}
	if job.ID == "" {
		return nil, nil
	}

	if err := s.db.WithContext(ctx).First(&job, "id = ?", job.ID).Error; err != nil {
		return nil, fmt.Errorf("reload claimed import job: %w", err)
	}
	return &job, nil
}

// Complete marks a running job as succeeded.
func (s *Store) Complete(ctx context.Context, id string, created int, took time.Duration) error {
	err := s.db.WithContext(ctx).Model(&Import{}).Where("id = ?", id).Updates(map[string]any{
		"state":            StateSucceeded,
		"finished_at":      time.Now().UTC(),
		"entities_created": created,
		"duration_ms":      took.Milliseconds(),
		"message":          fmt.Sprintf("created %d entities", created),
	}).Error
	if err != nil {
		return fmt.Errorf("complete import job: %w", err)
	}
	return nil
}

// Fail records errMsg on a running job. When retry is set and the job has
// attempts left it goes back to the queue; otherwise it is marked failed.
// It reports whether the job was requeued.
func (s *Store) Fail(ctx context.Context, id, errMsg string, retry bool, maxAttempts int) (bool, error) {
	var job Import
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return false, fmt.Errorf("load import job for fail: %w", err)
	}

	updates := map[string]any{"last_error": errMsg}
	requeue := retry && job.AttemptCount < maxAttempts
	if requeue {
		updates["state"] = StateQueued
		updates["started_at"] = nil
	} else {
		updates["state"] = StateFailed
		updates["finished_at"] = time.Now().UTC()
		updates["message"] = fmt.Sprintf("failed after %d attempt(s): %s", job.AttemptCount, errMsg)
	}
	if err := s.db.WithContext(ctx).Model(&Import{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return false, fmt.Errorf("fail import job: %w", err)
	}
	return requeue, nil
}

// Cancel marks a queued job as canceled. Running jobs finish on their own.
func (s *Store) Cancel(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&Import{}).
		Where("id = ? AND state = ?", id, StateQueued).
		Updates(map[string]any{
			"state":       StateCanceled,
			"finished_at": time.Now().UTC(),
			"message":     "canceled",
		})
	if res.Error != nil {
		return fmt.Errorf("cancel import job: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s is %s", ErrNotCancelable, id, job.State)
}

// Get returns a job by id, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Import, error) {
	var job Import
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get import job: %w", err)
	}
	return &job, nil
}

// List returns jobs newest first. pageToken is the RFC3339Nano request time
// of the last job on the previous page.
func (s *Store) List(ctx context.Context, f ListFilter, pageSize int, pageToken string) ([]Import, string, int64, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	where := func(q *gorm.DB) *gorm.DB {
		if f.State != "" {
			q = q.Where("state = ?", f.State)
		}
		if f.RequestedBy != "" {
			q = q.Where("requested_by = ?", f.RequestedBy)
		}
		return q
	}

	db := s.db.WithContext(ctx)
	var total int64
	if err := where(db.Model(&Import{})).Count(&total).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count import jobs: %w", err)
	}

	query := where(db.Model(&Import{})).Order("requested_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("requested_at < ?", t)
	}

	var jobs []Import
	if err := query.Find(&jobs).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list import jobs: %w", err)
	}

	next := ""
	if len(jobs) > pageSize {
		jobs = jobs[:pageSize]
		next = jobs[pageSize-1].RequestedAt.Format(time.RFC3339Nano)
	}
	return jobs, next, total, nil
}

// RecoverStuck requeues running jobs started before claimTimeout ago.
func (s *Store) RecoverStuck(ctx context.Context, claimTimeout time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-claimTimeout)
	res := s.db.WithContext(ctx).Model(&Import{}).
		Where("state = ? AND started_at < ?", StateRunning, cutoff).
		Updates(map[string]any{
			"state":      StateQueued,
			"started_at": nil,
			"last_error": "timed out while running",
		})
	if res.Error != nil {
		return 0, fmt.Errorf("recover stuck import jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteOlderThan removes finished jobs that ended before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("state IN ? AND finished_at < ?", terminalStates, cutoff).
		Delete(&Import{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete old import jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
