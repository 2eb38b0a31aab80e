package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passssat/fleet-registry/pkg/registry"
	"github.com/passssat/fleet-registry/pkg/seed"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Concurrency = 1
	cfg.MaxAttempts = 2
	cfg.PollInterval = 10 * time.Millisecond
	return cfg
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(errors.New("connection reset")))
	assert.False(t, Retryable(Permanent(errors.New("bad yaml"))))
	assert.False(t, Retryable(fmt.Errorf("seed vessel %q: %w", "a", &registry.ValidationError{Rule: registry.RuleFleetOperator})))
	assert.False(t, Retryable(&registry.NotFoundError{Kind: registry.KindFleet, ID: 3}))
	assert.Nil(t, Permanent(nil))
}

func TestProcessOneSucceeds(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	job := enqueue(t, s, &Import{Document: "payload"})

	var seen string
	wp := NewWorkerPool(s, ImporterFunc(func(_ context.Context, doc []byte) (int, error) {
		seen = string(doc)
		return 4, nil
	}), testConfig(), quiet)
	purged := 0
	wp.OnSuccess(func() { purged++ })

	assert.True(t, wp.processOne(ctx, 0))
	assert.False(t, wp.processOne(ctx, 0), "queue is empty")

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "payload", seen)
	assert.Equal(t, StateSucceeded, got.State)
	assert.Equal(t, 4, got.EntitiesCreated)
	assert.Equal(t, "created 4 entities", got.Message)
	assert.Equal(t, 1, purged)
}

func TestProcessOneRetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	job := enqueue(t, s, &Import{})

	wp := NewWorkerPool(s, ImporterFunc(func(context.Context, []byte) (int, error) {
		return 0, errors.New("database is locked")
	}), testConfig(), quiet)

	require.True(t, wp.processOne(ctx, 0))
	got, _ := s.Get(ctx, job.ID)
	assert.Equal(t, StateQueued, got.State)

	require.True(t, wp.processOne(ctx, 0))
	got, _ = s.Get(ctx, job.ID)
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, 2, got.AttemptCount)
	assert.Equal(t, "database is locked", got.LastError)
}

func TestProcessOneDoesNotRetryRejections(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	job := enqueue(t, s, &Import{})

	wp := NewWorkerPool(s, ImporterFunc(func(context.Context, []byte) (int, error) {
		return 1, &registry.ValidationError{Rule: registry.RuleSensorCompatible, Message: "not allowed"}
	}), testConfig(), quiet)

	require.True(t, wp.processOne(ctx, 0))
	got, _ := s.Get(ctx, job.ID)
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, 1, got.AttemptCount)
}

func TestRunProcessesQueueUntilCanceled(t *testing.T) {
	s := setupStore(t)
	job := enqueue(t, s, &Import{})

	var calls atomic.Int32
	wp := NewWorkerPool(s, ImporterFunc(func(context.Context, []byte) (int, error) {
		calls.Add(1)
		return 1, nil
	}), testConfig(), quiet)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		wp.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, err := s.Get(context.Background(), job.ID)
		return err == nil && got.State == StateSucceeded
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker pool did not stop")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunDisabledReturns(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	done := make(chan struct{})
	go func() {
		NewWorkerPool(setupStore(t), nil, cfg, quiet).Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled pool should return immediately")
	}
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	s := NewStore(db)
	job := enqueue(t, s, &Import{})
	_, err := s.Claim(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Model(&Import{}).Where("id = ?", job.ID).
		Update("started_at", time.Now().UTC().Add(-time.Hour)).Error)

	wp := NewWorkerPool(s, nil, testConfig(), quiet)
	wp.cleanup(ctx)

	got, _ := s.Get(ctx, job.ID)
	assert.Equal(t, StateQueued, got.State)
	assert.Equal(t, "timed out while running", got.LastError)
}

func TestSeedImporter(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	svc := registry.NewService(db, registry.WithLogger(quiet))
	imp := SeedImporter{Loader: seed.NewLoader(svc, quiet)}

	created, err := imp.Import(ctx, []byte(`
operators:
  - key: nordic
    name: Nordic Trawling
    email: ops@nordic.example
fleets:
  - key: north
    name: North Sea
    operator: nordic
`))
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	fleets, err := svc.ListFleets(ctx, 0)
	require.NoError(t, err)
	require.Len(t, fleets, 1)
	assert.Equal(t, "North Sea", fleets[0].Name)

	_, err = imp.Import(ctx, []byte("operators: [unterminated"))
	require.Error(t, err)
	assert.False(t, Retryable(err))

	created, err = imp.Import(ctx, []byte(`
fleets:
  - key: ghost
    name: Ghost
    operator: missing
`))
	assert.Zero(t, created)
	assert.ErrorIs(t, err, seed.ErrInvalid)
	assert.False(t, Retryable(err))
}
