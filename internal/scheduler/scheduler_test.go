package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(Config{}, ports.NopLogger{})
	require.NoError(t, err)
	return s
}

func TestScheduler_NextFire(t *testing.T) {
	s := newTestScheduler(t)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"mid-interval",
			time.Date(2026, 2, 10, 14, 7, 30, 0, time.UTC),
			time.Date(2026, 2, 10, 14, 15, 2, 0, time.UTC),
		},
		{
			"exactly on boundary",
			time.Date(2026, 2, 10, 14, 15, 0, 0, time.UTC),
			time.Date(2026, 2, 10, 14, 15, 2, 0, time.UTC),
		},
		{
			"inside the slack",
			time.Date(2026, 2, 10, 14, 15, 1, 0, time.UTC),
			time.Date(2026, 2, 10, 14, 15, 2, 0, time.UTC),
		},
		{
			"just past the slack",
			time.Date(2026, 2, 10, 14, 15, 2, 0, time.UTC),
			time.Date(2026, 2, 10, 14, 30, 2, 0, time.UTC),
		},
		{
			"near midnight rollover",
			time.Date(2026, 2, 10, 23, 59, 59, 0, time.UTC),
			time.Date(2026, 2, 11, 0, 0, 2, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, s.NextFire(tt.now).Equal(tt.want), "got %v, want %v", s.NextFire(tt.now), tt.want)
		})
	}
}

func TestScheduler_SkipWhileRunning(t *testing.T) {
	s := newTestScheduler(t)

	require.True(t, s.tryFire())
	assert.False(t, s.tryFire(), "boundary must be skipped while a cycle runs")
	s.done()
}

func TestScheduler_Debounce(t *testing.T) {
	s := newTestScheduler(t)
	base := time.Date(2026, 2, 10, 14, 15, 2, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }

	require.True(t, s.tryFire())
	s.done()

	clock = base.Add(10 * time.Second)
	assert.False(t, s.tryFire(), "second firing inside the debounce window must be suppressed")

	clock = base.Add(15 * time.Minute)
	assert.True(t, s.tryFire(), "next boundary must fire normally")
	s.done()
}

func TestNew_Defaults(t *testing.T) {
	s := newTestScheduler(t)
	assert.Equal(t, 15*time.Minute, s.cfg.Interval)
	assert.Equal(t, 2*time.Second, s.cfg.BoundarySlack)
	assert.Equal(t, time.Minute, s.cfg.DebounceWindow)

	_, err := New(Config{}, nil)
	assert.Error(t, err)
}
