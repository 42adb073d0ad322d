package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sioms/sioms/internal/app"
	"github.com/sioms/sioms/internal/inventory"
	jobmetrics "github.com/sioms/sioms/internal/jobs"
	"github.com/sioms/sioms/internal/notifications"
	"github.com/sioms/sioms/internal/observability"
	"github.com/sioms/sioms/internal/platform/db"
	"github.com/sioms/sioms/internal/shared"
	"github.com/sioms/sioms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	notificationService := notifications.NewService(notifications.NewRepository(pool))
	inventoryService := inventory.NewService(db.NewTransactor(pool), inventory.NewRepository(pool), notificationService,
		inventory.WithLogger(logger),
	)

	ledgerJob := jobs.NewLedgerCheckJob(inventoryService, logger, jobMetrics)
	cleanupJob := &jobs.CleanupJob{
		Idempotency:           shared.NewIdempotencyStore(db.ConnFunc(pool)),
		Notifications:         notificationService,
		IdempotencyRetention:  cfg.IdempotencyRetention,
		NotificationRetention: cfg.NotificationRetention,
		Logger:                logger,
		Metrics:               jobMetrics,
	}

	ledgerTask, err := jobs.NewLedgerCheckTask(jobs.LedgerCheckPayload{})
	if err != nil {
		logger.Error("build ledger check task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewCleanupTask(jobs.CleanupPayload{})
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerCheck, Handler: ledgerJob.Handle},
			{Type: jobs.TaskCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LedgerCheckCron, Task: ledgerTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: cfg.CleanupCron, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker metrics listening", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
