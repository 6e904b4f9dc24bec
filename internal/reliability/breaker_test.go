package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

func testBreaker(threshold int, openFor time.Duration) (*CircuitBreaker, *time.Time) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: threshold, OpenDuration: openFor}, ports.NopLogger{})
	clock := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return clock }
	return cb, &clock
}

func failing(context.Context) error { return ports.ErrExchangeUnavailable }
func succeeding(context.Context) error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := testBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Do(ctx, "fetch", failing))
	}
	assert.Equal(t, BreakerOpen, cb.State())

	// Open circuit fails fast without invoking the operation.
	calls := 0
	err := cb.Do(ctx, "fetch", func(context.Context) error {
		calls++
		return nil
	})
	require.True(t, errors.Is(err, ports.ErrCircuitOpen))
	assert.Zero(t, calls)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	cb, _ := testBreaker(3, time.Minute)
	ctx := context.Background()

	require.Error(t, cb.Do(ctx, "fetch", failing))
	require.Error(t, cb.Do(ctx, "fetch", failing))
	require.NoError(t, cb.Do(ctx, "fetch", succeeding))
	require.Error(t, cb.Do(ctx, "fetch", failing))
	require.Error(t, cb.Do(ctx, "fetch", failing))
	assert.Equal(t, BreakerClosed, cb.State(), "streak was broken, circuit must stay closed")
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	cb, clock := testBreaker(2, time.Minute)
	ctx := context.Background()

	require.Error(t, cb.Do(ctx, "fetch", failing))
	require.Error(t, cb.Do(ctx, "fetch", failing))
	require.Equal(t, BreakerOpen, cb.State())

	*clock = clock.Add(61 * time.Second)
	assert.Equal(t, BreakerHalfOpen, cb.State())

	// Failed probe re-opens.
	require.Error(t, cb.Do(ctx, "fetch", failing))
	assert.Equal(t, BreakerOpen, cb.State())

	// Successful probe closes.
	*clock = clock.Add(61 * time.Second)
	require.NoError(t, cb.Do(ctx, "fetch", succeeding))
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestErrorStats_Window(t *testing.T) {
	s := NewErrorStats()
	clock := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.RecordFailure(errors.New("boom"))
	s.RecordFailure(errors.New("boom again"))
	snap := s.Snapshot()
	assert.Equal(t, 2, snap.ConsecutiveFailures)
	assert.Equal(t, 2, snap.Failures)
	assert.Equal(t, "boom again", snap.LastError)

	clock = clock.Add(time.Minute)
	s.RecordSuccess()
	snap = s.Snapshot()
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.Equal(t, 2, snap.Failures)
	assert.Equal(t, 3, snap.WindowSize)
	assert.InDelta(t, 2.0/3.0, snap.FailureRate, 1e-9)
	assert.True(t, snap.LastSuccess.Equal(clock))
}

func TestErrorStats_RingBounded(t *testing.T) {
	s := NewErrorStats()
	for i := 0; i < 150; i++ {
		s.RecordFailure(errors.New("x"))
	}
	snap := s.Snapshot()
	assert.Equal(t, statsWindow, snap.WindowSize)
	assert.Equal(t, statsWindow, snap.Failures)
	assert.Equal(t, 150, snap.ConsecutiveFailures)

	for i := 0; i < statsWindow; i++ {
		s.RecordSuccess()
	}
	snap = s.Snapshot()
	assert.Zero(t, snap.Failures, "old failures must age out of the window")
}
