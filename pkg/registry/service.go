// Package registry is the fleet entity store together with its consistency
// rules: fleet/operator coherence, sensor class compatibility, requirement
// bookkeeping, deletion guards and the sensor configuration evaluator.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/passssat/fleet-registry/pkg/metrics"
)

// Service exposes every registry operation. Each write runs in a single
// transaction that is rolled back on any failure.
type Service struct {
	db       *gorm.DB
	logger   *slog.Logger
	validate *validator.Validate
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service backed by db.
func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:       db,
		logger:   slog.Default(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying handle.
func (s *Service) DB() *gorm.DB { return s.db }

// AutoMigrate creates or updates every registry table.
func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(AllModels()...)
}

// write runs fn in a transaction and records the outcome.
func (s *Service) write(ctx context.Context, kind, op string, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	err = classify(op+" "+kind, err)
	s.observe(kind, op, err)
	return err
}

func (s *Service) observe(kind, op string, err error) {
	if err == nil {
		metrics.Mutation(kind, op, "ok")
		return
	}

	var (
		ve *ValidationError
		de *DependencyError
	)
	switch {
	case errors.As(err, &ve):
		metrics.Mutation(kind, op, "invalid")
		metrics.Rejection(ve.Rule)
		s.logger.Info("write rejected", "kind", kind, "op", op, "rule", ve.Rule, "error", ve.Message)
	case errors.As(err, &de):
		metrics.Mutation(kind, op, "blocked")
		metrics.BlockedDeletion(kind)
		s.logger.Info("delete blocked", "kind", kind, "id", de.ID, "blockers", de.Count())
	case errors.Is(err, ErrNotFound):
		metrics.Mutation(kind, op, "not_found")
	case errors.Is(err, ErrIntegrity):
		metrics.Mutation(kind, op, "integrity")
		s.logger.Warn("store constraint violated", "kind", kind, "op", op, "error", err)
	default:
		metrics.Mutation(kind, op, "error")
		s.logger.Error("write failed", "kind", kind, "op", op, "error", err)
	}
}

// checkPayload runs struct tag validation and reports the first failure as a
// ValidationError.
func (s *Service) checkPayload(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return invalid(RulePayload, "field %s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return invalid(RulePayload, "field %s failed %s", fe.Field(), fe.Tag())
	}
	return invalid(RulePayload, "invalid payload: %v", err)
}

// forUpdate adds a row lock on dialects that support SELECT ... FOR UPDATE.
// sqlite serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// load fetches a row by primary key or returns NotFoundError.
func load[T any](tx *gorm.DB, kind string, id uint) (*T, error) {
	var row T
	if err := tx.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(kind, id)
		}
		return nil, fmt.Errorf("load %s %d: %w", kind, id, err)
	}
	return &row, nil
}

// loadLocked is load with a row lock held until the transaction ends.
func loadLocked[T any](tx *gorm.DB, kind string, id uint) (*T, error) {
	return load[T](forUpdate(tx), kind, id)
}

// mustExist is the foreign key pre-check used before inserts and updates.
func mustExist(tx *gorm.DB, model any, kind string, id uint) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("check %s %d: %w", kind, id, err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

// countWhere counts rows of model matching query.
func countWhere(tx *gorm.DB, model any, query string, args ...any) (int64, error) {
	var n int64
	err := tx.Model(model).Where(query, args...).Count(&n).Error
	return n, err
}

// read wraps a read-only lookup so that errors carry the operation name.
func (s *Service) read(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	return classify(op, fn(s.db.WithContext(ctx)))
}
