package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(Config{
		DBPath: filepath.Join(t.TempDir(), "trades.db"),
		Logger: ports.NopLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTrade(exitTime time.Time, pnl float64) *domain.Trade {
	entryRSI := 47.5
	exitRSI := 36.0
	return &domain.Trade{
		Symbol:     "PI_XBTUSD",
		Kind:       domain.KindShort,
		EntryPrice: 43000,
		ExitPrice:  42100,
		Size:       0.0123,
		PNL:        pnl,
		EntryRSI:   &entryRSI,
		ExitRSI:    &exitRSI,
		EntryTime:  exitTime.Add(-9 * time.Hour),
		ExitTime:   exitTime,
		ExitReason: domain.ExitReasonTarget,
	}
}

func TestRecordTrade_AndFindBySymbol(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)

	id1, err := repo.RecordTrade(ctx, sampleTrade(base, 11.07))
	require.NoError(t, err)
	assert.Positive(t, id1)

	second := sampleTrade(base.Add(24*time.Hour), -3.2)
	second.Kind = domain.KindLongVI1
	second.ExitReason = domain.ExitReasonLastResort
	second.EntryRSI = nil
	id2, err := repo.RecordTrade(ctx, second)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	trades, err := repo.FindBySymbol(ctx, "PI_XBTUSD", 0)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// Newest first.
	assert.Equal(t, id2, trades[0].ID)
	assert.Equal(t, domain.KindLongVI1, trades[0].Kind)
	assert.Equal(t, domain.ExitReasonLastResort, trades[0].ExitReason)
	assert.Nil(t, trades[0].EntryRSI, "missing entry RSI must round-trip as nil")

	require.NotNil(t, trades[1].EntryRSI)
	assert.Equal(t, 47.5, *trades[1].EntryRSI)
	assert.Equal(t, 11.07, trades[1].PNL)
	assert.True(t, trades[1].ExitTime.Equal(base))
}

func TestFindBySymbol_Limit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := repo.RecordTrade(ctx, sampleTrade(base.Add(time.Duration(i)*time.Hour), float64(i)))
		require.NoError(t, err)
	}

	trades, err := repo.FindBySymbol(ctx, "PI_XBTUSD", 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.True(t, trades[0].ExitTime.After(trades[1].ExitTime))
}

func TestFindBySymbol_OtherSymbolEmpty(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.RecordTrade(ctx, sampleTrade(time.Now().UTC(), 1))
	require.NoError(t, err)

	trades, err := repo.FindBySymbol(ctx, "PI_ETHUSD", 0)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)

	stats, err := repo.Stats(ctx, "PI_XBTUSD")
	require.NoError(t, err)
	assert.Zero(t, stats.Total)

	pnls := []float64{12.5, -4.0, 7.25, 0}
	for i, pnl := range pnls {
		_, err := repo.RecordTrade(ctx, sampleTrade(base.Add(time.Duration(i)*time.Hour), pnl))
		require.NoError(t, err)
	}

	stats, err = repo.Stats(ctx, "PI_XBTUSD")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 2, stats.Losses, "zero-PNL trades count as losses")
	assert.InDelta(t, 15.75, stats.TotalPNL, 1e-9)
}

func TestRecordTrade_Validation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.RecordTrade(ctx, nil)
	assert.Error(t, err)

	bad := sampleTrade(time.Now().UTC(), 1)
	bad.Kind = "LONG_VI9"
	_, err = repo.RecordTrade(ctx, bad)
	assert.Error(t, err)
}
