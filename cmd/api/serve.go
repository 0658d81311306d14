package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/slicehouse/pizzeria/internal/config"
	"github.com/slicehouse/pizzeria/internal/observability"
	"github.com/slicehouse/pizzeria/internal/persistence"
	"github.com/slicehouse/pizzeria/internal/repository"
	"github.com/slicehouse/pizzeria/internal/repository/memory"
	"github.com/slicehouse/pizzeria/internal/server"
)

const shutdownTimeout = 10 * time.Second

// inMemory allows serve to run without DATABASE_URL on the in-process store.
var inMemory bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().BoolVar(&inMemory, "in-memory", false, "Run on the in-process store when DATABASE_URL is unset; data is lost on restart")
	}
}

// backend is the store chosen at startup plus whatever needs closing.
type backend struct {
	store  repository.UnitOfWork
	driver string
	pg     *persistence.Postgres
	redis  *persistence.Redis
}

func (b *backend) Close() {
	b.pg.Close()
	b.redis.Close()
}

// bootstrap loads configuration, the logger and backing stores shared by every command.
// Without DATABASE_URL it fails unless allowMemory is set.
func bootstrap(ctx context.Context, allowMemory bool) (*config.Config, *zap.Logger, *backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, !cfg.App.IsProduction())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	b, err := openStore(ctx, cfg.Postgres, logger, allowMemory)
	if err != nil {
		return nil, nil, nil, err
	}
	b.redis = persistence.NewRedis(ctx, cfg.Redis, logger)
	return cfg, logger, b, nil
}

func openStore(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger, allowMemory bool) (*backend, error) {
	pg, err := persistence.NewPostgres(ctx, cfg, logger)
	switch {
	case errors.Is(err, persistence.ErrNoDatabase) && allowMemory:
		logger.Warn("DATABASE_URL not provided; using in-memory store, data is lost on restart")
		return &backend{store: memory.NewStore(), driver: "memory"}, nil
	case errors.Is(err, persistence.ErrNoDatabase):
		return nil, errors.New("DATABASE_URL is required; pass --in-memory to run without a database")
	case err != nil:
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &backend{store: repository.NewPostgresStore(pg.Pool), driver: "postgres", pg: pg}, nil
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cfg, logger, b, err := bootstrap(ctx, inMemory)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer b.Close()

	if b.pg != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, b.pg.Pool, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	srv := server.New(cfg, server.Infra{
		Store:       b.store,
		StoreDriver: b.driver,
		Redis:       b.redis,
		Logger:      logger,
	})
	srv.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("store", b.driver))
		errCh <- srv.App.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber listen: %w", err)
	case <-waitForShutdown(logger):
	}

	cancel()
	if err := srv.App.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("graceful shutdown incomplete", zap.Error(err))
	}
	return nil
}

func waitForShutdown(logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		close(done)
	}()
	return done
}
