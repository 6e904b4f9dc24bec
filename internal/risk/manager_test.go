package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

func defaultSizer(t *testing.T) *Sizer {
	t.Helper()
	s, err := NewSizer(Config{}, ports.NopLogger{})
	require.NoError(t, err)
	return s
}

func TestSize_Formula(t *testing.T) {
	s := defaultSizer(t)
	// 1000 * 10 * 0.95 / 43000 = 0.22093..., truncated to 4 decimals.
	size, err := s.Size(context.Background(), 1000, 43000)
	require.NoError(t, err)
	assert.Equal(t, 0.2209, size)
}

func TestSize_TruncatesNeverRoundsUp(t *testing.T) {
	s, err := NewSizer(Config{Leverage: 1, Utilization: 1}, ports.NopLogger{})
	require.NoError(t, err)
	// 1/3 = 0.33333... must truncate to 0.3333, not round to 0.3334.
	size, err := s.Size(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.3333, size)
}

func TestSize_BelowMinimumFails(t *testing.T) {
	s := defaultSizer(t)
	_, err := s.Size(context.Background(), 0.1, 50000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrInsufficientFunds))
}

func TestSize_CapApplied(t *testing.T) {
	s, err := NewSizer(Config{MaxSize: 0.5}, ports.NopLogger{})
	require.NoError(t, err)
	size, err := s.Size(context.Background(), 100000, 43000)
	require.NoError(t, err)
	assert.Equal(t, 0.5, size)
}

func TestSize_MarginFloor(t *testing.T) {
	s, err := NewSizer(Config{MinAvailableMargin: 100}, ports.NopLogger{})
	require.NoError(t, err)

	_, err = s.Size(context.Background(), 99, 43000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrInsufficientFunds))

	_, err = s.Size(context.Background(), 100, 43000)
	assert.NoError(t, err)
}

func TestSize_Validation(t *testing.T) {
	s := defaultSizer(t)
	_, err := s.Size(context.Background(), 1000, 0)
	assert.True(t, errors.Is(err, ports.ErrInvalidRequest))
	_, err = s.Size(context.Background(), 0, 43000)
	assert.True(t, errors.Is(err, ports.ErrInsufficientFunds))
}

func TestNewSizer_Defaults(t *testing.T) {
	s := defaultSizer(t)
	assert.Equal(t, 10, s.cfg.Leverage)
	assert.Equal(t, 0.95, s.cfg.Utilization)
	assert.Equal(t, 0.0001, s.cfg.MinSize)
	assert.Equal(t, int32(4), s.cfg.SizeDecimals)

	_, err := NewSizer(Config{}, nil)
	assert.Error(t, err)
}
