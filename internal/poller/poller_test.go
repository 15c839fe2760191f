package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoyetu/payments-backend/pkg/enums"
)

type recordedUpdates struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recordedUpdates) record(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recordedUpdates) all() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish in time")
	}
}

func TestStart_RequiresCallbacks(t *testing.T) {
	_, err := Start(context.Background(), Params{
		OnUpdate: func(Update) {},
	})
	require.Error(t, err)

	_, err = Start(context.Background(), Params{
		Verify: func(context.Context) (enums.PaymentStatus, string, error) {
			return enums.PaymentStatusProcessing, "", nil
		},
	})
	require.Error(t, err)
}

func TestSession_StopsOnTerminalStatus(t *testing.T) {
	// Verify returns failed on the third call: exactly three updates.
	calls := 0
	verify := func(context.Context) (enums.PaymentStatus, string, error) {
		calls++
		if calls >= 3 {
			return enums.PaymentStatusFailed, "FAILED", nil
		}
		return enums.PaymentStatusProcessing, "PENDING", nil
	}

	rec := &recordedUpdates{}
	s, err := Start(context.Background(), Params{
		Verify:   verify,
		OnUpdate: rec.record,
		Options:  Options{Interval: time.Millisecond, MaxAttempts: 50},
		Method:   enums.PaymentMethodMTNMoMo,
	})
	require.NoError(t, err)
	waitDone(t, s)

	updates := rec.all()
	require.Len(t, updates, 3)
	assert.Equal(t, enums.PaymentStatusProcessing, updates[0].Status)
	assert.Equal(t, enums.PaymentStatusFailed, updates[2].Status)
	assert.Equal(t, 3, updates[2].Attempt)
	assert.Equal(t, OutcomeTerminal, s.Outcome())
	assert.True(t, s.Stopped())
}

func TestSession_StopBeforeFirstTick(t *testing.T) {
	rec := &recordedUpdates{}
	s, err := Start(context.Background(), Params{
		Verify: func(context.Context) (enums.PaymentStatus, string, error) {
			return enums.PaymentStatusProcessing, "", nil
		},
		OnUpdate: rec.record,
		Options:  Options{Interval: time.Hour},
	})
	require.NoError(t, err)

	s.Stop()
	waitDone(t, s)

	assert.Empty(t, rec.all())
	assert.Equal(t, OutcomeStopped, s.Outcome())
}

func TestSession_NoUpdatesAfterStop(t *testing.T) {
	rec := &recordedUpdates{}
	s, err := Start(context.Background(), Params{
		Verify: func(context.Context) (enums.PaymentStatus, string, error) {
			return enums.PaymentStatusProcessing, "PENDING", nil
		},
		OnUpdate: rec.record,
		Options:  Options{Interval: time.Millisecond, MaxAttempts: 1_000_000},
	})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	s.Stop()
	seen := len(rec.all())

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, rec.all(), seen)
	waitDone(t, s)
	assert.Equal(t, OutcomeStopped, s.Outcome())
}

func TestSession_VerifyErrorIsNotTerminal(t *testing.T) {
	calls := 0
	verify := func(context.Context) (enums.PaymentStatus, string, error) {
		calls++
		if calls == 1 {
			return "", "", errors.New("gateway unreachable")
		}
		return enums.PaymentStatusCompleted, "SUCCESSFUL", nil
	}

	rec := &recordedUpdates{}
	s, err := Start(context.Background(), Params{
		Verify:   verify,
		OnUpdate: rec.record,
		Options:  Options{Interval: time.Millisecond},
	})
	require.NoError(t, err)
	waitDone(t, s)

	updates := rec.all()
	require.Len(t, updates, 2)
	assert.Error(t, updates[0].Err)
	assert.NoError(t, updates[1].Err)
	assert.Equal(t, OutcomeTerminal, s.Outcome())
}

func TestSession_MaxAttempts(t *testing.T) {
	rec := &recordedUpdates{}
	s, err := Start(context.Background(), Params{
		Verify: func(context.Context) (enums.PaymentStatus, string, error) {
			return enums.PaymentStatusProcessing, "PENDING", nil
		},
		OnUpdate: rec.record,
		Options:  Options{Interval: time.Millisecond, MaxAttempts: 5},
	})
	require.NoError(t, err)
	waitDone(t, s)

	assert.Len(t, rec.all(), 5)
	assert.Equal(t, OutcomeMaxAttempts, s.Outcome())
}

func TestSession_WallTimeout(t *testing.T) {
	rec := &recordedUpdates{}
	s, err := Start(context.Background(), Params{
		Verify: func(context.Context) (enums.PaymentStatus, string, error) {
			return enums.PaymentStatusProcessing, "PENDING", nil
		},
		OnUpdate: rec.record,
		Options: Options{
			Interval:    time.Hour,
			WallTimeout: 20 * time.Millisecond,
		},
	})
	require.NoError(t, err)
	waitDone(t, s)

	assert.Empty(t, rec.all())
	assert.Equal(t, OutcomeTimeout, s.Outcome())
}

func TestSession_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recordedUpdates{}
	s, err := Start(ctx, Params{
		Verify: func(context.Context) (enums.PaymentStatus, string, error) {
			return enums.PaymentStatusProcessing, "PENDING", nil
		},
		OnUpdate: rec.record,
		Options:  Options{Interval: time.Hour},
	})
	require.NoError(t, err)

	cancel()
	waitDone(t, s)
	assert.Empty(t, rec.all())
	assert.Equal(t, OutcomeCanceled, s.Outcome())
}

func TestSession_BackoffStretchesInterval(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextInterval(time.Second, 2, 10*time.Second))
	assert.Equal(t, 10*time.Second, nextInterval(8*time.Second, 2, 10*time.Second))
	assert.Equal(t, time.Second, nextInterval(time.Second, 1, 10*time.Second))
}

func TestSession_ConcurrentJitteredSessionsAreIndependent(t *testing.T) {
	// Each session draws jitter from its own source; run several in parallel
	// so the race detector can prove they share nothing.
	verify := func(context.Context) (enums.PaymentStatus, string, error) {
		return enums.PaymentStatusCompleted, "SUCCESSFUL", nil
	}

	sessions := make([]*Session, 0, 8)
	for i := 0; i < 8; i++ {
		rec := &recordedUpdates{}
		s, err := Start(context.Background(), Params{
			Verify:   verify,
			OnUpdate: rec.record,
			Options:  Options{Interval: time.Millisecond, Jitter: time.Millisecond},
			Method:   enums.PaymentMethodMTNMoMo,
		})
		require.NoError(t, err)
		sessions = append(sessions, s)
	}

	for _, s := range sessions {
		waitDone(t, s)
		assert.Equal(t, OutcomeTerminal, s.Outcome())
	}
}
