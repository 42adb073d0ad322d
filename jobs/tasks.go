package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerCheck replays stock movements and reports drift.
	TaskLedgerCheck = "inventory:ledger_check"
	// TaskCleanup applies retention to idempotency keys and read notifications.
	TaskCleanup = "maintenance:cleanup"
)

// LedgerCheckPayload scopes a ledger check. A zero ProductID checks every product.
type LedgerCheckPayload struct {
	ProductID   int64 `json:"product_id,omitempty"`
	RequestedBy int64 `json:"requested_by,omitempty"`
}

// NewLedgerCheckTask constructs an Asynq task for the ledger check.
func NewLedgerCheckTask(payload LedgerCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerCheck, data, asynq.Queue(QueueDefault)), nil
}

// CleanupPayload overrides the configured retention windows when non-zero.
type CleanupPayload struct {
	IdempotencyRetention  time.Duration `json:"idempotency_retention,omitempty"`
	NotificationRetention time.Duration `json:"notification_retention,omitempty"`
}

// NewCleanupTask constructs an Asynq task for retention cleanup.
func NewCleanupTask(payload CleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCleanup, data, asynq.Queue(QueueDefault)), nil
}
