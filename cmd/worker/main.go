// Package main is the entry point for the assessment core background
// worker. The worker keeps the exam statistics cache warm and hosts the
// event bus subscribers that invalidate cached statistics on grade writes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/skills-hub/assessment-core/config"
	"github.com/skills-hub/assessment-core/internal/application/query"
	"github.com/skills-hub/assessment-core/internal/infrastructure/messaging"
	"github.com/skills-hub/assessment-core/internal/infrastructure/persistence/postgres"
	redisinfra "github.com/skills-hub/assessment-core/internal/infrastructure/persistence/redis"
	"github.com/skills-hub/assessment-core/internal/infrastructure/scheduler"
	"github.com/skills-hub/assessment-core/internal/infrastructure/scheduler/jobs"
	"github.com/skills-hub/assessment-core/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("worker starting",
		"env", cfg.App.Environment, "version", cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// Infrastructure
	// ─────────────────────────────────────────────────────────────────────────

	conn, err := connectDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer conn.Close()

	var statsCache query.StatisticsCache
	if !cfg.Redis.Disabled && cfg.Features.IsEnabled(config.FeatureStatsCache, nil) {
		cache, err := redisinfra.NewCache(redisinfra.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			// The worker can run without Redis; statistics are just slower.
			logger.Warn("redis unavailable, statistics cache disabled", "error", err)
		} else {
			defer cache.Close()
			statsCache = redisinfra.NewStatisticsCache(cache)
		}
	}

	examRepo := postgres.NewExamRepository(conn)
	gradeRepo := postgres.NewGradeRepository(conn)
	statsHandler := query.NewExamStatisticsHandler(examRepo, gradeRepo, statsCache, cfg.Grading.StatsCacheTTL)

	// ─────────────────────────────────────────────────────────────────────────
	// Event bus
	// ─────────────────────────────────────────────────────────────────────────

	bus := messaging.NewInMemoryEventBus(messaging.Config{
		AsyncMode: true,
		Logger:    logger,
	})
	defer bus.Close()

	if statsCache != nil {
		invalidator := messaging.NewStatisticsInvalidator(statsCache, logger)
		if err := invalidator.Register(bus); err != nil {
			return fmt.Errorf("register invalidator: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Scheduler
	// ─────────────────────────────────────────────────────────────────────────

	sched := scheduler.NewScheduler(scheduler.Config{
		Logger:     logger,
		Timezone:   cfg.App.Location,
		JobTimeout: cfg.Scheduler.JobTimeout,
	})

	if cfg.Scheduler.Enabled && statsCache != nil &&
		cfg.Features.IsEnabled(config.FeatureStatsScheduledRefresh, nil) {
		job := jobs.NewRefreshStatisticsJob(examRepo, statsHandler, logger, 0)
		if err := sched.Register(job, scheduler.NewIntervalSchedule(cfg.Scheduler.StatsRefreshInterval)); err != nil {
			return fmt.Errorf("register job: %w", err)
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	logger.Info("worker started")

	// ─────────────────────────────────────────────────────────────────────────
	// Shutdown
	// ─────────────────────────────────────────────────────────────────────────

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownDone := make(chan struct{})
	go func() {
		sched.Stop()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		logger.Info("worker stopped")
		return nil
	case <-time.After(cfg.App.ShutdownTimeout):
		return errors.New("shutdown timed out")
	}
}

// connectDatabase opens the pool, retrying while the database comes up.
func connectDatabase(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	pgConfig := postgres.DefaultConfig()
	pgConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	pgConfig.MinConns = int32(cfg.Database.MinIdleConns)
	pgConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgConfig.QueryTimeout = cfg.Database.QueryTimeout

	return retry.DoWithData(ctx, func(ctx context.Context) (*postgres.Connection, error) {
		conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, pgConfig)
		if err != nil {
			return nil, retry.Retryable(err)
		}
		return conn, nil
	}, retry.WithMaxAttempts(10), retry.WithInitialDelay(500*time.Millisecond), retry.WithMaxDelay(10*time.Second))
}

// newLogger builds the process logger from observability config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("app", cfg.App.Name)
}
