// Package ha lets several fleet-server replicas start against one database
// without racing each other through schema migration.
package ha

import (
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"time"

	"gorm.io/gorm"
)

// MigrationLocker serializes schema migration across processes.
type MigrationLocker interface {
	// WithLock blocks until the lock is held, runs fn and releases the lock.
	WithLock(ctx context.Context, fn func() error) error
}

// LockOptions tunes the table-based lock used where the database has no
// native named lock.
type LockOptions struct {
	Name          string
	MaxRetries    int
	RetryInterval time.Duration
	StaleAfter    time.Duration
	Logger        *slog.Logger
}

// DefaultLockOptions returns the options used by fleet-server.
func DefaultLockOptions() LockOptions {
	return LockOptions{
		Name:          "fleet-registry-migration",
		MaxRetries:    30,
		RetryInterval: time.Second,
		StaleAfter:    5 * time.Minute,
	}
}

// NewMigrationLocker picks a lock for the dialect: advisory locks on
// PostgreSQL, GET_LOCK on MySQL and a lock table elsewhere. A nil db yields a
// lock that just runs fn.
func NewMigrationLocker(db *gorm.DB, opts LockOptions) MigrationLocker {
	if db == nil {
		return noopMigrationLock{}
	}
	if opts.Name == "" {
		opts.Name = DefaultLockOptions().Name
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch db.Dialector.Name() {
	case "postgres":
		return &pgAdvisoryLock{
			db:     db,
			lockID: int64(crc32.ChecksumIEEE([]byte(opts.Name))),
			logger: opts.Logger,
		}
	case "mysql":
		return &mysqlNamedLock{db: db, name: opts.Name, logger: opts.Logger}
	}

	// Create the table up front so concurrent first callers never see
	// "no such table".
	_ = db.AutoMigrate(&migrationLockRecord{})
	return &tableMigrationLock{db: db, opts: opts}
}

// NoopMigrationLocker returns a locker that does no locking.
func NoopMigrationLocker() MigrationLocker { return noopMigrationLock{} }

type noopMigrationLock struct{}

func (noopMigrationLock) WithLock(_ context.Context, fn func() error) error {
	return fn()
}

type pgAdvisoryLock struct {
	db     *gorm.DB
	lockID int64
	logger *slog.Logger
}

func (l *pgAdvisoryLock) WithLock(ctx context.Context, fn func() error) error {
	// Advisory locks belong to a session, so pin one connection for both
	// the lock and the unlock.
	sqlDB, err := l.db.DB()
	if err != nil {
		return fmt.Errorf("get sql handle: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("reserve connection for migration lock: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", l.lockID); err != nil {
		return fmt.Errorf("acquire migration advisory lock: %w", err)
	}
	l.logger.Debug("migration lock acquired", "kind", "pg_advisory", "id", l.lockID)
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", l.lockID)
	}()

	return fn()
}

type mysqlNamedLock struct {
	db     *gorm.DB
	name   string
	logger *slog.Logger
}

func (l *mysqlNamedLock) WithLock(ctx context.Context, fn func() error) error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return fmt.Errorf("get sql handle: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("reserve connection for migration lock: %w", err)
	}
	defer conn.Close()

	var got *int
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, -1)", l.name).Scan(&got); err != nil {
		return fmt.Errorf("acquire migration lock %q: %w", l.name, err)
	}
	if got == nil || *got != 1 {
		return fmt.Errorf("acquire migration lock %q: refused", l.name)
	}
	l.logger.Debug("migration lock acquired", "kind", "mysql_named", "name", l.name)
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT RELEASE_LOCK(?)", l.name)
	}()

	return fn()
}

// migrationLockRecord is the lock row for databases without named locks.
type migrationLockRecord struct {
	ID       string    `gorm:"primaryKey;column:id"`
	LockedAt time.Time `gorm:"column:locked_at"`
	LockedBy string    `gorm:"column:locked_by"`
}

func (migrationLockRecord) TableName() string { return "migration_lock" }

// tableMigrationLock takes the lock by inserting a fixed primary key and
// releases it by deleting the row. Rows older than StaleAfter are treated as
// left behind by a crashed holder.
type tableMigrationLock struct {
	db   *gorm.DB
	opts LockOptions
}

func (l *tableMigrationLock) WithLock(ctx context.Context, fn func() error) error {
	holder, _ := os.Hostname()
	if holder == "" {
		holder = "unknown"
	}
	holder = fmt.Sprintf("%s/%d", holder, os.Getpid())

	retries := l.opts.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	row := migrationLockRecord{ID: l.opts.Name, LockedBy: holder}

	for i := 0; ; i++ {
		if l.opts.StaleAfter > 0 {
			l.db.WithContext(ctx).
				Where("id = ? AND locked_at < ?", l.opts.Name, time.Now().Add(-l.opts.StaleAfter)).
				Delete(&migrationLockRecord{})
		}

		row.LockedAt = time.Now()
		err := l.db.WithContext(ctx).Create(&row).Error
		if err == nil {
			break
		}
		if i == retries-1 {
			return fmt.Errorf("acquire migration lock after %d attempts: %w", retries, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.opts.RetryInterval):
		}
	}
	l.opts.Logger.Debug("migration lock acquired", "kind", "table", "holder", holder)

	defer func() {
		l.db.Where("id = ? AND locked_by = ?", l.opts.Name, holder).Delete(&migrationLockRecord{})
	}()

	return fn()
}
