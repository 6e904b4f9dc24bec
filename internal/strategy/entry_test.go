package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// entryView builds a bar view where every auxiliary window passes.
func entryView(rsi float64) domain.MarketView {
	return domain.MarketView{
		BarTime:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Close:      40000,
		PrevClose:  40100,
		Volume:     120,
		PrevVolume: 100,
		RSI:        rsi,
		PrevRSI:    rsi - 2,
		RSIReady:   true,
		ATRReady:   true,
		VI1:        domain.BandView{Phase: domain.PhaseBearish},
		VI2:        domain.BandView{Phase: domain.PhaseBearish},
		VI3:        domain.BandView{Phase: domain.PhaseBearish},
	}
}

func armShort(view *domain.MarketView) {
	view.VI1 = domain.BandView{Phase: domain.PhaseBearish, Crossed: true, Direction: domain.CrossingUp}
	view.VI2.Phase = domain.PhaseBearish
	view.VI3.Phase = domain.PhaseBearish
}

func armLongVI1(view *domain.MarketView) {
	view.VI1 = domain.BandView{Phase: domain.PhaseBullish, Crossed: true, Direction: domain.CrossingDown}
	view.VI2.Phase = domain.PhaseBullish
	view.VI3.Phase = domain.PhaseBullish
}

func armLongVI2(view *domain.MarketView) {
	view.VI1.Phase = domain.PhaseBullish
	view.VI2 = domain.BandView{Phase: domain.PhaseBullish, Crossed: true, Direction: domain.CrossingDown}
	view.VI3.Phase = domain.PhaseBearish
}

func armLongReentry(view *domain.MarketView) {
	view.VI1.Phase = domain.PhaseBullish
	view.VI2 = domain.BandView{Phase: domain.PhaseBullish, Crossed: true, Direction: domain.CrossingDown}
	view.VI3.Phase = domain.PhaseBullish
}

func freshState() *domain.StrategyState {
	return &domain.StrategyState{VI1Phase: domain.PhaseBearish}
}

func TestEntry_ShortGates(t *testing.T) {
	rules := defaultRules()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	view := entryView(48)
	armShort(&view)
	d, _ := rules.evaluateEntry(view, freshState(), now)
	require.Equal(t, domain.ActionEnter, d.Action)
	assert.Equal(t, domain.KindShort, d.Kind)

	// RSI above 50 disarms the short.
	view.RSI = 51
	d, _ = rules.evaluateEntry(view, freshState(), now)
	assert.Equal(t, domain.ActionHold, d.Action)

	// A bullish companion band disarms it too.
	view.RSI = 48
	view.VI3.Phase = domain.PhaseBullish
	d, _ = rules.evaluateEntry(view, freshState(), now)
	assert.Equal(t, domain.ActionHold, d.Action)
}

func TestEntry_PriorityShortOverLong(t *testing.T) {
	rules := defaultRules()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Both SHORT and LONG_VI2 triggers satisfied at RSI where both RSI
	// windows hold (<=50 and >=45): SHORT must win.
	view := entryView(48)
	view.VI1 = domain.BandView{Phase: domain.PhaseBearish, Crossed: true, Direction: domain.CrossingUp}
	view.VI2 = domain.BandView{Phase: domain.PhaseBearish, Crossed: true, Direction: domain.CrossingDown}
	view.VI3.Phase = domain.PhaseBearish

	d, signals := rules.evaluateEntry(view, freshState(), now)
	require.Equal(t, domain.ActionEnter, d.Action)
	assert.Equal(t, domain.KindShort, d.Kind)
	assert.Len(t, signals, 1, "evaluation stops at the first satisfied strategy")
}

func TestEntry_ExtremeZoneBlocksAll(t *testing.T) {
	rules := defaultRules()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	view := entryView(9)
	armShort(&view)
	d, signals := rules.evaluateEntry(view, freshState(), now)
	assert.Equal(t, domain.ActionHold, d.Action)
	assert.Nil(t, signals)
	assert.Contains(t, d.Reason, "extreme zone")

	view = entryView(87)
	armLongVI1(&view)
	d, _ = rules.evaluateEntry(view, freshState(), now)
	assert.Equal(t, domain.ActionHold, d.Action)
}

func TestEntry_VI1ProtectionBlocksCounterPhase(t *testing.T) {
	rules := defaultRules()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// VI1 flipped BULLISH an hour ago: shorts are blocked, longs are not.
	st := &domain.StrategyState{
		VI1Phase:          domain.PhaseBullish,
		VI1PhaseChangedAt: now.Add(-time.Hour),
	}
	view := entryView(48)
	armShort(&view)
	d, _ := rules.evaluateEntry(view, st, now)
	assert.Equal(t, domain.ActionHold, d.Action)

	// Same flip but 73 hours old: protection expired.
	st.VI1PhaseChangedAt = now.Add(-73 * time.Hour)
	d, _ = rules.evaluateEntry(view, st, now)
	assert.Equal(t, domain.ActionEnter, d.Action)

	// VI1 BEARISH and fresh: every long is blocked.
	st = &domain.StrategyState{
		VI1Phase:          domain.PhaseBearish,
		VI1PhaseChangedAt: now.Add(-time.Hour),
	}
	view = entryView(55)
	armLongVI1(&view)
	d, _ = rules.evaluateEntry(view, st, now)
	assert.Equal(t, domain.ActionHold, d.Action)
}

func TestEntry_ReentryBlocking(t *testing.T) {
	rules := defaultRules()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Last position was a LONG_VI1: LONG_VI2 is blocked but
	// LONG_REENTRY may pick up the same trigger.
	lastVI1 := domain.KindLongVI1
	st := &domain.StrategyState{VI1Phase: domain.PhaseBullish, LastPositionKind: &lastVI1}
	view := entryView(55)
	armLongReentry(&view) // VI3 bullish satisfies both VI2 and reentry phases.
	d, _ := rules.evaluateEntry(view, st, now)
	require.Equal(t, domain.ActionEnter, d.Action)
	assert.Equal(t, domain.KindLongReentry, d.Kind)

	// After a LONG_REENTRY every long is blocked.
	lastReentry := domain.KindLongReentry
	st = &domain.StrategyState{VI1Phase: domain.PhaseBullish, LastPositionKind: &lastReentry}
	d, _ = rules.evaluateEntry(view, st, now)
	assert.Equal(t, domain.ActionHold, d.Action)

	// A SHORT remains available.
	viewShort := entryView(48)
	armShort(&viewShort)
	d, _ = rules.evaluateEntry(viewShort, st, now)
	assert.Equal(t, domain.ActionEnter, d.Action)
	assert.Equal(t, domain.KindShort, d.Kind)
}

func TestEntry_AuxiliaryWindows(t *testing.T) {
	rules := defaultRules()
	rules.MinVolume = 50
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Volume floor violated.
	view := entryView(48)
	armShort(&view)
	view.Volume = 10
	view.PrevVolume = 9 // Keep the ratio window satisfied.
	d, _ := rules.evaluateEntry(view, freshState(), now)
	assert.Equal(t, domain.ActionHold, d.Action)

	// RSI slope window violated.
	view = entryView(48)
	armShort(&view)
	view.PrevRSI = 30 // Jump of 18 > 15.
	d, _ = rules.evaluateEntry(view, freshState(), now)
	assert.Equal(t, domain.ActionHold, d.Action)

	// Delta-volume ratio violated.
	view = entryView(48)
	armShort(&view)
	view.Volume = 1500
	view.PrevVolume = 100 // Ratio 15 > 10.
	d, _ = rules.evaluateEntry(view, freshState(), now)
	assert.Equal(t, domain.ActionHold, d.Action)
}
