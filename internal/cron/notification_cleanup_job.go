package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sokoyetu/payments-backend/pkg/logger"
)

const (
	defaultNotificationMaxAge  = 90 * 24 * time.Hour
	defaultNotificationPerPass = 1000
	maxCleanupPasses           = 50
)

type notificationPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// NotificationCleanupJobParams configure the notification retention job.
type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository notificationPruner
	MaxAge     time.Duration
	PerPass    int
}

// NewNotificationCleanupJob builds the job that prunes old notifications
// in bounded batches.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultNotificationMaxAge
	}
	perPass := params.PerPass
	if perPass <= 0 {
		perPass = defaultNotificationPerPass
	}
	return &notificationCleanupJob{
		logg:    params.Logger,
		repo:    params.Repository,
		maxAge:  maxAge,
		perPass: perPass,
		now:     time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg    *logger.Logger
	repo    notificationPruner
	maxAge  time.Duration
	perPass int
	now     func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	var total int64
	for pass := 0; pass < maxCleanupPasses; pass++ {
		deleted, err := j.repo.DeleteOlderThan(ctx, cutoff, j.perPass)
		if err != nil {
			return fmt.Errorf("notification cleanup: %w", err)
		}
		total += deleted
		if deleted < int64(j.perPass) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
