package poller

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sokoyetu/payments-backend/pkg/enums"
	"github.com/sokoyetu/payments-backend/pkg/logger"
	"github.com/sokoyetu/payments-backend/pkg/metrics"
)

const (
	defaultInterval    = 3 * time.Second
	defaultMaxAttempts = 40
	defaultWallTimeout = 120 * time.Second
)

// Outcome is why a session ended.
type Outcome string

const (
	OutcomeTerminal    Outcome = "terminal"
	OutcomeMaxAttempts Outcome = "max_attempts"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeStopped     Outcome = "stopped"
	OutcomeCanceled    Outcome = "canceled"
)

// Update is delivered to the caller after every verify attempt. Err is set
// when the attempt itself failed; verify errors never end the session.
type Update struct {
	Attempt       int
	Status        enums.PaymentStatus
	CarrierStatus string
	Err           error
}

// VerifyFunc fetches the current status once. CarrierStatus is the raw
// provider status string for display.
type VerifyFunc func(ctx context.Context) (status enums.PaymentStatus, carrierStatus string, err error)

// UpdateFunc receives one Update per verify attempt. It runs on the polling
// goroutine and must not call Stop on its own session.
type UpdateFunc func(Update)

// Options tunes the polling cadence. Zero values take the package defaults.
// BackoffFactor > 1 stretches the interval after each attempt up to
// MaxInterval; the default factor 1 keeps a fixed cadence.
type Options struct {
	Interval      time.Duration
	MaxAttempts   int
	WallTimeout   time.Duration
	BackoffFactor float64
	MaxInterval   time.Duration
	Jitter        time.Duration
}

// Params wires one polling session.
type Params struct {
	Verify   VerifyFunc
	OnUpdate UpdateFunc
	Options  Options
	Method   enums.PaymentMethod
	Logger   *logger.Logger
	Metrics  *metrics.PollerMetrics
}

// Session is a cancellable polling task. Stop is safe to call from any
// goroutine, more than once, and before the first tick; after Stop returns
// no further OnUpdate calls are made.
type Session struct {
	cancel context.CancelFunc
	done   chan struct{}

	// rng is touched only by the polling goroutine; sessions never share one.
	rng *rand.Rand

	mu      sync.Mutex
	stopped bool
	outcome Outcome
}

// Start launches a session that calls Verify every interval until a terminal
// status, the attempt cap, the wall timeout, Stop, or context cancellation.
// The first verify fires after one interval, not immediately.
func Start(ctx context.Context, params Params) (*Session, error) {
	if params.Verify == nil {
		return nil, errors.New("verify function is required")
	}
	if params.OnUpdate == nil {
		return nil, errors.New("update callback is required")
	}

	opts := params.Options
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.WallTimeout <= 0 {
		opts.WallTimeout = defaultWallTimeout
	}
	if opts.BackoffFactor < 1 {
		opts.BackoffFactor = 1
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = opts.WallTimeout
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cancel: cancel,
		done:   make(chan struct{}),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	go s.run(ctx, params, opts)
	return s, nil
}

// Stop ends the session. Any verify attempt already in flight is discarded
// without invoking OnUpdate.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		s.outcome = OutcomeStopped
	}
	s.mu.Unlock()
	s.cancel()
}

// Stopped reports whether the session has been asked to stop or has ended.
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Done is closed when the polling goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Outcome reports why the session ended; empty while still running.
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Session) run(ctx context.Context, params Params, opts Options) {
	started := time.Now()
	params.Metrics.SessionStarted()
	defer func() {
		close(s.done)
		s.cancel()
		params.Metrics.SessionFinished()
		params.Metrics.ObserveOutcome(params.Method.String(), string(s.Outcome()), time.Since(started))
	}()

	deadline := time.NewTimer(opts.WallTimeout)
	defer deadline.Stop()

	interval := opts.Interval
	timer := time.NewTimer(s.withJitter(interval, opts.Jitter))
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			s.end(OutcomeCanceled)
			return
		case <-deadline.C:
			s.end(OutcomeTimeout)
			return
		case <-timer.C:
		}

		params.Metrics.IncAttempt(params.Method.String())
		status, carrierStatus, err := params.Verify(ctx)

		// A Stop racing the verify call wins: no update after Stop.
		if !s.deliver(params.OnUpdate, Update{
			Attempt:       attempt,
			Status:        status,
			CarrierStatus: carrierStatus,
			Err:           err,
		}) {
			return
		}
		if err != nil && params.Logger != nil {
			params.Logger.Warn(params.Logger.WithField(ctx, "attempt", attempt), "verify attempt failed")
		}

		if err == nil && status.IsTerminal() {
			s.end(OutcomeTerminal)
			return
		}
		if attempt >= opts.MaxAttempts {
			s.end(OutcomeMaxAttempts)
			return
		}

		interval = nextInterval(interval, opts.BackoffFactor, opts.MaxInterval)
		timer.Reset(s.withJitter(interval, opts.Jitter))
	}
}

// deliver invokes onUpdate unless the session was stopped first, holding the
// lock across the callback so Stop cannot return while an update is in flight.
func (s *Session) deliver(onUpdate UpdateFunc, update Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	onUpdate(update)
	return true
}

func (s *Session) end(outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		s.outcome = outcome
	}
}

func nextInterval(current time.Duration, factor float64, max time.Duration) time.Duration {
	if factor <= 1 {
		return current
	}
	next := time.Duration(float64(current) * factor)
	if next > max {
		return max
	}
	return next
}

func (s *Session) withJitter(d, window time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if window <= 0 {
		return d
	}
	return d + time.Duration(s.rng.Int63n(int64(window)))
}
