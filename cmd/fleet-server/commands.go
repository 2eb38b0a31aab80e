package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/passssat/fleet-registry/pkg/api"
	"github.com/passssat/fleet-registry/pkg/audit"
	"github.com/passssat/fleet-registry/pkg/cache"
	"github.com/passssat/fleet-registry/pkg/config"
	"github.com/passssat/fleet-registry/pkg/ha"
	"github.com/passssat/fleet-registry/pkg/jobs"
	"github.com/passssat/fleet-registry/pkg/registry"
	"github.com/passssat/fleet-registry/pkg/seed"
	"github.com/passssat/fleet-registry/pkg/store"
)

const shutdownTimeout = 30 * time.Second

type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "fleet-server",
		Short:         "Fleet, vessel and sensor registry server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	if err := config.BindFlags(a.v, root.PersistentFlags()); err != nil {
		glog.Fatalf("Failed to bind flags: %v", err)
	}

	root.AddCommand(a.serveCmd(), a.migrateCmd(), a.seedCmd())
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.NewLogger()
	slog.SetDefault(a.logger)
	return nil
}

// openDatabase connects and migrates the schema, audit and import job tables
// included.
func (a *app) openDatabase(ctx context.Context) (*gorm.DB, error) {
	db, err := store.Open(a.cfg.Store())
	if err != nil {
		return nil, err
	}
	locker := ha.NoopMigrationLocker()
	if a.cfg.Database.MigrationLock {
		opts := ha.DefaultLockOptions()
		opts.Logger = a.logger
		locker = ha.NewMigrationLocker(db, opts)
	}
	if err := store.Migrate(ctx, db, locker, a.logger, &audit.Event{}, &jobs.Import{}); err != nil {
		_ = store.Close(db)
		return nil, err
	}
	return db, nil
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			return store.Close(db)
		},
	}
}

func (a *app) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data through the registry rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fixture, err := seed.Default()
			if file != "" {
				fixture, err = seed.LoadFile(file)
			}
			if err != nil {
				return err
			}
			db, err := a.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close(db)

			svc := registry.NewService(db, registry.WithLogger(a.logger))
			_, err = seed.NewLoader(svc, a.logger).Apply(cmd.Context(), fixture)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fixture file (default: built-in reference data)")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry REST API",
		Run: func(cmd *cobra.Command, _ []string) {
			a.serve()
		},
	}
}

func (a *app) serve() {
	logger := a.logger
	logger.Info("starting fleet server",
		"listen", a.cfg.Listen,
		"database", a.cfg.Database.Type,
		"audit", a.cfg.Audit.Enabled,
		"imports", a.cfg.Jobs.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	db, err := a.openDatabase(ctx)
	if err != nil {
		glog.Fatalf("Failed to set up database: %v", err)
	}
	defer store.Close(db)

	svc := registry.NewService(db, registry.WithLogger(logger))
	responses := cache.FromConfig(a.cfg.Cache)
	opts := api.Options{
		AllowedOrigins: a.cfg.CORS.AllowedOrigins,
		AuditConfig:    a.cfg.AuditConfig(),
		Cache:          responses,
		Logger:         logger,
		DisableMetrics: !a.cfg.Metrics.Enabled,
	}
	if a.cfg.Audit.Enabled {
		events := audit.NewStore(db)
		opts.Audit = events
		go audit.NewRetention(events, a.cfg.AuditConfig(), logger).Run(ctx)
	}

	poolDone := make(chan struct{})
	if a.cfg.Jobs.Enabled {
		imports := jobs.NewStore(db)
		opts.Imports = imports
		importer := jobs.SeedImporter{Loader: seed.NewLoader(svc, logger)}
		pool := jobs.NewWorkerPool(imports, importer, a.cfg.Jobs, logger)
		// Imports bypass InvalidateOnWrite.
		pool.OnSuccess(responses.Purge)
		go func() {
			defer close(poolDone)
			pool.Run(ctx)
		}()
	} else {
		close(poolDone)
	}

	httpServer := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           api.NewServer(svc, opts).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()
	logger.Info("fleet server ready", "listen", a.cfg.Listen)

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	select {
	case <-poolDone:
	case <-shutdownCtx.Done():
		logger.Warn("import workers did not stop before the shutdown deadline")
	}
	logger.Info("fleet server stopped")
}
