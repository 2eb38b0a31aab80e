// Package store opens the registry database and migrates its schema.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/passssat/fleet-registry/pkg/ha"
	"github.com/passssat/fleet-registry/pkg/registry"
)

// Supported database types.
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
)

// Config selects and tunes the database.
type Config struct {
	Type         string
	DSN          string
	Debug        bool
	MaxOpenConns int
	MaxIdleConns int
}

// SQLitePragmas are appended to sqlite DSNs that carry no pragmas of their
// own. Foreign keys are off by default in sqlite.
const SQLitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// SQLiteDSN adds the required pragmas to a sqlite path or DSN.
func SQLiteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + SQLitePragmas
}

// Dialector returns the GORM dialector for cfg.
func Dialector(cfg Config) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Type) {
	case "", TypeSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "fleet.db"
		}
		return sqlite.Open(SQLiteDSN(dsn)), nil
	case TypePostgres, "postgresql":
		return postgres.Open(cfg.DSN), nil
	case TypeMySQL:
		return mysql.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
}

// GormConfig is the configuration every registry connection uses. Store
// errors are translated so constraint violations can be told apart.
func GormConfig(debug bool) *gorm.Config {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	return &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// Open connects to the database described by cfg.
func Open(cfg Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	return OpenDialector(dialector, cfg)
}

// OpenDialector connects through an explicit dialector.
func OpenDialector(dialector gorm.Dialector, cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, GormConfig(cfg.Debug))
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialector.Name(), err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}
	switch {
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	case dialector.Name() == TypeSQLite:
		// One writer at a time; a single connection avoids lock upgrade
		// failures between concurrent transactions.
		sqlDB.SetMaxOpenConns(1)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	return db, nil
}

// Migrate creates or updates every table while holding the migration lock.
// extra lists models owned by other packages, such as the audit log.
func Migrate(ctx context.Context, db *gorm.DB, locker ha.MigrationLocker, logger *slog.Logger, extra ...any) error {
	if locker == nil {
		locker = ha.NoopMigrationLocker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	models := append(registry.AllModels(), extra...)
	start := time.Now()
	err := locker.WithLock(ctx, func() error {
		return db.WithContext(ctx).AutoMigrate(models...)
	})
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	logger.Info("schema migrated", "dialect", db.Dialector.Name(), "tables", len(models), "duration", time.Since(start))
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
