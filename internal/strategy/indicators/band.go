package indicators

import (
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// BandConfig configures one volatility band. The seed level and phase are
// operator-supplied constants: the live history began mid-stream relative
// to the exchange's own indicator state, so the band continues from the
// seed rather than re-deriving from raw OHLC. Bars at or before SeedTime
// are skipped.
type BandConfig struct {
	Name       string
	Multiplier float64
	SeedLevel  float64
	SeedPhase  domain.Phase
	SeedTime   time.Time
}

// VolatilityBand is an adaptive trailing level. BULLISH while the level
// sits below the close, BEARISH while above. The level trails the close by
// Multiplier*ATR and only ever tightens toward price; when the close
// traverses it, the phase flips and the level re-anchors to the other
// side. The crossing flag and direction describe the most recently
// processed bar and reset on the next update.
type VolatilityBand struct {
	name       string
	multiplier float64
	seedTime   time.Time

	level     float64
	phase     domain.Phase
	crossed   bool
	direction domain.CrossingDirection
	started   bool
}

// NewVolatilityBand creates a band holding the configured seed state.
func NewVolatilityBand(cfg BandConfig) VolatilityBand {
	phase := cfg.SeedPhase
	if phase == "" {
		phase = domain.PhaseBearish
	}
	return VolatilityBand{
		name:       cfg.Name,
		multiplier: cfg.Multiplier,
		seedTime:   cfg.SeedTime,
		level:      cfg.SeedLevel,
		phase:      phase,
		direction:  domain.CrossingNone,
	}
}

// Update advances the band by one bar. atr must be a valid value; callers
// only invoke Update once the ATR is ready.
func (b *VolatilityBand) Update(barTime time.Time, close, atr float64) {
	if !b.seedTime.IsZero() && !barTime.After(b.seedTime) {
		return
	}
	b.started = true
	b.crossed = false
	b.direction = domain.CrossingNone

	offset := b.multiplier * atr
	switch b.phase {
	case domain.PhaseBullish:
		if close < b.level {
			b.phase = domain.PhaseBearish
			b.level = close + offset
			b.crossed = true
			b.direction = domain.CrossingUp
			return
		}
		if trail := close - offset; trail > b.level {
			b.level = trail
		}
	default: // BEARISH
		if close > b.level {
			b.phase = domain.PhaseBullish
			b.level = close - offset
			b.crossed = true
			b.direction = domain.CrossingDown
			return
		}
		if trail := close + offset; trail < b.level {
			b.level = trail
		}
	}
}

// Name returns the band name (VI1, VI2, VI3).
func (b *VolatilityBand) Name() string {
	return b.name
}

// Level returns the current band level.
func (b *VolatilityBand) Level() float64 {
	return b.level
}

// Phase returns the current phase.
func (b *VolatilityBand) Phase() domain.Phase {
	return b.phase
}

// View returns the decision-facing snapshot of the band.
func (b *VolatilityBand) View() domain.BandView {
	return domain.BandView{
		Level:     b.level,
		Phase:     b.phase,
		Crossed:   b.crossed,
		Direction: b.direction,
	}
}
