package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sioms/sioms/internal/jobs"
)

// IdempotencyPurger removes idempotency keys older than the retention.
type IdempotencyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// NotificationPurger removes read notifications older than the retention.
type NotificationPurger interface {
	PurgeRead(ctx context.Context, retention time.Duration) (int64, error)
}

// CleanupResult reports deleted row counts.
type CleanupResult struct {
	IdempotencyKeys int64 `json:"idempotency_keys"`
	Notifications   int64 `json:"notifications"`
}

// CleanupJob applies retention windows.
type CleanupJob struct {
	Idempotency           IdempotencyPurger
	Notifications         NotificationPurger
	IdempotencyRetention  time.Duration
	NotificationRetention time.Duration
	Logger                *slog.Logger
	Metrics               *jobmetrics.Metrics
}

// Handle executes the cleanup for an Asynq task.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("cleanup: handler not configured")
	}
	var payload CleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run purges both tables. A zero retention disables that purge.
func (j *CleanupJob) Run(ctx context.Context, payload CleanupPayload) (result CleanupResult, resultErr error) {
	tracker := j.Metrics.Track(TaskCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	idemRetention := firstPositive(payload.IdempotencyRetention, j.IdempotencyRetention)
	notifRetention := firstPositive(payload.NotificationRetention, j.NotificationRetention)
	logger := j.logger().With(
		slog.Duration("idempotency_retention", idemRetention),
		slog.Duration("notification_retention", notifRetention),
	)

	var errs []error
	if j.Idempotency != nil && idemRetention > 0 {
		n, err := j.Idempotency.Cleanup(ctx, idemRetention)
		if err != nil {
			logger.Error("purge idempotency keys", slog.Any("error", err))
			errs = append(errs, err)
		}
		result.IdempotencyKeys = n
		j.Metrics.AddPurged("idempotency_keys", n)
	}
	if j.Notifications != nil && notifRetention > 0 {
		n, err := j.Notifications.PurgeRead(ctx, notifRetention)
		if err != nil {
			logger.Error("purge read notifications", slog.Any("error", err))
			errs = append(errs, err)
		}
		result.Notifications = n
		j.Metrics.AddPurged("notifications", n)
	}

	logger.Info("completed cleanup",
		slog.Int64("idempotency_keys", result.IdempotencyKeys),
		slog.Int64("notifications", result.Notifications),
	)
	return result, errors.Join(errs...)
}

func firstPositive(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func (j *CleanupJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
