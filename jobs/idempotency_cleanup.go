package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/showroom-dms/showroom/internal/jobs"
)

// DefaultIdempotencyRetention is how long processed sale keys are remembered.
const DefaultIdempotencyRetention = 72 * time.Hour

// KeyCleaner deletes request keys claimed longer ago than retention.
type KeyCleaner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// IdempotencyCleanupJob prunes expired sale request keys.
type IdempotencyCleanupJob struct {
	Store   KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob initialises the cleanup handler.
func NewIdempotencyCleanupJob(store KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle executes the cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		err = tracker.End(err)
	}()
	payload := IdempotencyCleanupPayload{Retention: DefaultIdempotencyRetention}
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Retention <= 0 {
		payload.Retention = DefaultIdempotencyRetention
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	removed, err := j.Store.Prune(ctx, payload.Retention)
	if err != nil {
		logger.Error("request key cleanup failed", slog.Any("error", err))
		return err
	}
	logger.Info("request keys pruned", slog.Int64("removed", removed), slog.Duration("retention", payload.Retention))
	return nil
}
