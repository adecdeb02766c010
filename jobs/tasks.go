package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRecoveryScan lists customers with dues and counts overdue promises.
	TaskRecoveryScan = "credit:recovery_scan"
	// TaskIdempotencyCleanup drops expired Idempotency-Key records.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// RecoveryScanPayload carries scheduling metadata.
type RecoveryScanPayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

// NewRecoveryScanTask constructs the recovery scan task.
func NewRecoveryScanTask(requestedBy string) (*asynq.Task, error) {
	body, err := json.Marshal(RecoveryScanPayload{RequestedBy: requestedBy})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecoveryScan, body, asynq.Queue(QueueDefault)), nil
}

// IdempotencyCleanupPayload sets how long processed keys are kept.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
