package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/passssat/fleet-registry/pkg/metrics"
	"github.com/passssat/fleet-registry/pkg/registry"
)

// Importer applies one import document and returns how many entities it
// created.
type Importer interface {
	Import(ctx context.Context, document []byte) (int, error)
}

// ImporterFunc adapts a function to Importer.
type ImporterFunc func(ctx context.Context, document []byte) (int, error)

// Import calls f.
func (f ImporterFunc) Import(ctx context.Context, document []byte) (int, error) {
	return f(ctx, document)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth another attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryable reports whether a failed import may succeed when run again.
// Documents the registry rejected fail the same way every time.
func Retryable(err error) bool {
	var pe *permanentError
	switch {
	case errors.As(err, &pe),
		errors.Is(err, registry.ErrValidation),
		errors.Is(err, registry.ErrNotFound),
		errors.Is(err, registry.ErrConflict),
		errors.Is(err, registry.ErrIntegrity):
		return false
	}
	return true
}

// WorkerPool runs queued import jobs on a fixed number of goroutines.
type WorkerPool struct {
	store    *Store
	importer Importer
	cfg      Config
	logger   *slog.Logger
	wg       sync.WaitGroup

	cleanupInterval time.Duration
	onSuccess       func()
}

// NewWorkerPool creates a worker pool.
func NewWorkerPool(store *Store, importer Importer, cfg Config, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		store:           store,
		importer:        importer,
		cfg:             cfg,
		logger:          logger,
		cleanupInterval: time.Minute,
	}
}

// OnSuccess registers fn to run after every import that succeeded.
func (wp *WorkerPool) OnSuccess(fn func()) {
	wp.onSuccess = fn
}

// Run starts cfg.Concurrency workers plus a cleanup loop and blocks until ctx
// is canceled and every worker has returned.
func (wp *WorkerPool) Run(ctx context.Context) {
	if wp.store == nil || !wp.cfg.Enabled {
		wp.logger.Info("import worker pool disabled")
		return
	}

	wp.logger.Info("import worker pool starting",
		"concurrency", wp.cfg.Concurrency,
		"maxAttempts", wp.cfg.MaxAttempts,
		"pollInterval", wp.cfg.PollInterval.String())

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		wp.cleanupLoop(ctx)
	}()

	for i := 0; i < wp.cfg.Concurrency; i++ {
		wp.wg.Add(1)
		go func(workerID int) {
			defer wp.wg.Done()
			wp.workerLoop(ctx, workerID)
		}(i)
	}

	<-ctx.Done()
	wp.logger.Info("import worker pool shutting down, waiting for workers to finish")
	wp.wg.Wait()
	wp.logger.Info("import worker pool stopped")
}

func (wp *WorkerPool) workerLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(wp.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain the queue before waiting for the next tick.
			for wp.processOne(ctx, workerID) && ctx.Err() == nil {
			}
		}
	}
}

// processOne claims and runs a single job. It reports whether a job was
// claimed.
func (wp *WorkerPool) processOne(ctx context.Context, workerID int) bool {
	job, err := wp.store.Claim(ctx)
	if err != nil {
		wp.logger.Error("failed to claim import job", "workerID", workerID, "error", err)
		return false
	}
	if job == nil {
		return false
	}

	logger := wp.logger.With("workerID", workerID, "jobID", job.ID, "attempt", job.AttemptCount)
	logger.Info("processing import job", "requestedBy", job.RequestedBy)

	runCtx := ctx
	if wp.cfg.ClaimTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, wp.cfg.ClaimTimeout)
		defer cancel()
	}

	start := time.Now()
	created, err := wp.importer.Import(runCtx, []byte(job.Document))
	if err != nil {
		requeued, failErr := wp.store.Fail(ctx, job.ID, err.Error(), Retryable(err), wp.cfg.MaxAttempts)
		if failErr != nil {
			logger.Error("failed to record import failure", "error", failErr)
			return true
		}
		if requeued {
			metrics.ImportJob("retried")
			logger.Warn("import job failed, requeued", "error", err)
		} else {
			metrics.ImportJob("failed")
			logger.Error("import job failed", "error", err, "created", created)
		}
		return true
	}

	took := time.Since(start)
	if err := wp.store.Complete(ctx, job.ID, created, took); err != nil {
		logger.Error("failed to mark import job complete", "error", err)
		return true
	}
	metrics.ImportJob("succeeded")
	logger.Info("import job completed", "created", created, "duration", took.String())
	if wp.onSuccess != nil {
		wp.onSuccess()
	}
	return true
}

func (wp *WorkerPool) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(wp.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wp.cleanup(ctx)
		}
	}
}

func (wp *WorkerPool) cleanup(ctx context.Context) {
	if wp.cfg.ClaimTimeout > 0 {
		recovered, err := wp.store.RecoverStuck(ctx, wp.cfg.ClaimTimeout)
		if err != nil {
			wp.logger.Error("failed to recover stuck import jobs", "error", err)
		} else if recovered > 0 {
			wp.logger.Info("recovered stuck import jobs", "count", recovered)
		}
	}

	if wp.cfg.RetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -wp.cfg.RetentionDays)
		deleted, err := wp.store.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			wp.logger.Error("failed to delete old import jobs", "error", err)
		} else if deleted > 0 {
			wp.logger.Info("deleted old import jobs", "count", deleted)
		}
	}
}
