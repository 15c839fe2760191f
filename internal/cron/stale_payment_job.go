package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sokoyetu/payments-backend/pkg/logger"
)

const (
	defaultPendingPaymentTTL = 24 * time.Hour

	// Written into failure_reason so support can tell expiries apart from
	// carrier declines.
	expiredPaymentReason = "expired"
)

type pendingPaymentExpirer interface {
	ExpirePendingBefore(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

// StalePaymentJobParams configure the pending payment expiry job.
type StalePaymentJobParams struct {
	Logger     *logger.Logger
	Repository pendingPaymentExpirer
	TTL        time.Duration
}

// NewStalePaymentJob builds the job that fails pending payments the
// customer abandoned without ever authorizing.
func NewStalePaymentJob(params StalePaymentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingPaymentTTL
	}
	return &stalePaymentJob{
		logg: params.Logger,
		repo: params.Repository,
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

type stalePaymentJob struct {
	logg *logger.Logger
	repo pendingPaymentExpirer
	ttl  time.Duration
	now  func() time.Time
}

func (j *stalePaymentJob) Name() string { return "stale-payments" }

func (j *stalePaymentJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.repo.ExpirePendingBefore(ctx, cutoff, expiredPaymentReason)
	if err != nil {
		return fmt.Errorf("expire pending payments: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"ttl_hours":    j.ttl.Hours(),
		"rows_expired": expired,
	})
	j.logg.Info(logCtx, "stale payment sweep complete")
	return nil
}
