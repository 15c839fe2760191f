package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sokoyetu/payments-backend/internal/payments"
	"github.com/sokoyetu/payments-backend/pkg/config"
	"github.com/sokoyetu/payments-backend/pkg/db/models"
	"github.com/sokoyetu/payments-backend/pkg/logger"
)

const (
	defaultScanInterval = 10 * time.Second
	defaultScanBatch    = 50
	defaultConcurrency  = 8
	defaultGracePeriod  = 120 * time.Second
	maxBackoff          = 5 * time.Minute
	jitterWindow        = 500 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
}

type paymentScanner interface {
	ListProcessing(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Payment, error)
}

type paymentVerifier interface {
	VerifyPayment(ctx context.Context, id uuid.UUID) (*payments.VerifyResult, error)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Repository paymentScanner
	Verifier   paymentVerifier
}

// Service reconciles payments stuck in processing with the carrier. The
// in-request poller gives up after its wall timeout; this worker picks those
// payments up and re-verifies them until the carrier settles.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbClient
	repo         paymentScanner
	verifier     paymentVerifier
	scanInterval time.Duration
	scanBatch    int
	concurrency  int
	gracePeriod  time.Duration
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("payments repository is required")
	}
	if params.Verifier == nil {
		return nil, errors.New("payment verifier is required")
	}

	interval := params.Config.Poller.ScanInterval
	if interval <= 0 {
		interval = defaultScanInterval
	}
	batch := params.Config.Poller.ScanBatch
	if batch <= 0 {
		batch = defaultScanBatch
	}
	concurrency := params.Config.Poller.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	grace := params.Config.Poller.WallTimeout
	if grace <= 0 {
		grace = defaultGracePeriod
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		verifier:     params.Verifier,
		scanInterval: interval,
		scanBatch:    batch,
		concurrency:  concurrency,
		gracePeriod:  grace,
		now:          time.Now,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.scanInterval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "status worker context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.scanOnce(ctx)
		if err != nil {
			s.logg.Error(ctx, "status worker scan error", err)
			backoff = nextBackoff(backoff, s.scanInterval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = s.scanInterval

		// A full batch means more may be waiting, scan again immediately.
		if processed >= s.scanBatch {
			continue
		}

		if err := s.sleep(ctx, withJitter(s.scanInterval)); err != nil {
			return err
		}
	}
}

// scanOnce reverifies one batch of stuck payments and returns how many it
// picked up. Individual verification failures are logged and skipped; only
// the scan itself can fail the cycle.
func (s *Service) scanOnce(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.gracePeriod)
	stuck, err := s.repo.ListProcessing(ctx, cutoff, s.scanBatch)
	if err != nil {
		return 0, fmt.Errorf("listing processing payments: %w", err)
	}
	if len(stuck) == 0 {
		return 0, nil
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"batch_size": len(stuck),
		"cutoff":     cutoff.Format(time.RFC3339),
	})
	s.logg.Info(ctx, "reverifying stuck payments")

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for _, payment := range stuck {
		wg.Add(1)
		sem <- struct{}{}
		go func(p models.Payment) {
			defer wg.Done()
			defer func() { <-sem }()
			s.verifyOne(ctx, p)
		}(payment)
	}
	wg.Wait()

	return len(stuck), nil
}

func (s *Service) verifyOne(ctx context.Context, payment models.Payment) {
	ctx = s.logg.WithPaymentID(ctx, payment.ID.String())
	ctx = s.logg.WithField(ctx, "method", string(payment.Method))

	result, err := s.verifier.VerifyPayment(ctx, payment.ID)
	if err != nil {
		s.logg.Error(ctx, "payment reverification failed", err)
		return
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"status":         string(result.Payment.Status),
		"carrier_status": result.CarrierStatus,
	})
	if result.Payment.Status == payment.Status {
		s.logg.Info(ctx, "payment still settling at carrier")
		return
	}
	s.logg.Info(ctx, "payment status reconciled")
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
