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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/showroom-dms/showroom/internal/app"
	"github.com/showroom-dms/showroom/internal/credit"
	jobmetrics "github.com/showroom-dms/showroom/internal/jobs"
	"github.com/showroom-dms/showroom/internal/platform/db"
	"github.com/showroom-dms/showroom/internal/shared"
	"github.com/showroom-dms/showroom/jobs"
)

const idempotencyCleanupCron = "30 3 * * *"

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

	tolerance, err := cfg.Tolerance()
	if err != nil {
		logger.Error("settlement tolerance", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGStatementTimeout)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)
	creditService := credit.NewService(credit.NewRepository(pool), tolerance, nil, logger)
	recoveryJob := jobs.NewRecoveryScanJob(creditService, logger, metrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewRequestKeys(pool), logger, metrics)

	recoveryTask, err := jobs.NewRecoveryScanTask("cron")
	if err != nil {
		logger.Error("build recovery scan task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.DefaultIdempotencyRetention)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRecoveryScan, Handler: recoveryJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RecoveryScanCron, Task: recoveryTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: idempotencyCleanupCron, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting worker", slog.String("recovery_cron", cfg.RecoveryScanCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
