package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/showroom-dms/showroom/internal/credit"
	jobmetrics "github.com/showroom-dms/showroom/internal/jobs"
)

// DuesLister is the part of the credit service the scan reads.
type DuesLister interface {
	ListDues(ctx context.Context) ([]credit.Due, error)
}

// RecoveryScanJob logs overdue credit promises and publishes the backlog.
// It only reads.
type RecoveryScanJob struct {
	Dues    DuesLister
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewRecoveryScanJob initialises the recovery scan handler.
func NewRecoveryScanJob(dues DuesLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *RecoveryScanJob {
	return &RecoveryScanJob{Dues: dues, Logger: logger, Metrics: metrics}
}

// ScanResult summarises one scan.
type ScanResult struct {
	CustomersWithDues int
	OverduePromises   int
}

// Handle executes the recovery scan.
func (j *RecoveryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Dues == nil {
		return errors.New("recovery scan: handler not configured")
	}
	var payload RecoveryScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload.RequestedBy)
	return err
}

// Run scans the dues list once.
func (j *RecoveryScanJob) Run(ctx context.Context, requestedBy string) (res ScanResult, err error) {
	tracker := j.Metrics.Track(TaskRecoveryScan)
	defer func() {
		err = tracker.End(err)
	}()
	start := time.Now()
	logger := j.logger()
	if requestedBy != "" {
		logger = logger.With(slog.String("requested_by", requestedBy))
	}

	dues, err := j.Dues.ListDues(ctx)
	if err != nil {
		logger.Error("recovery scan failed", slog.Any("error", err))
		return ScanResult{}, err
	}
	res.CustomersWithDues = len(dues)
	for _, d := range dues {
		if !d.Overdue {
			continue
		}
		res.OverduePromises++
		attrs := []any{
			slog.Int64("customer_id", d.CustomerID),
			slog.String("customer", d.CustomerName),
			slog.String("mobile", d.Mobile),
			slog.String("balance", d.Balance.StringFixed(2)),
		}
		if d.PromiseDate != nil {
			attrs = append(attrs, slog.String("promise_date", d.PromiseDate.Format("2006-01-02")))
		}
		logger.Warn("credit promise overdue", attrs...)
	}
	j.Metrics.SetRecoveryBacklog(res.OverduePromises, res.CustomersWithDues)
	logger.Info("completed recovery scan",
		slog.Int("customers_with_dues", res.CustomersWithDues),
		slog.Int("overdue_promises", res.OverduePromises),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (j *RecoveryScanJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
