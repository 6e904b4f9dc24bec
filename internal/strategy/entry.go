package strategy

import (
	"fmt"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// EntryGates holds the individual boolean checks behind one entry strategy.
// Missing-key bugs become compile-time errors: every gate the decision
// reads is an explicit field.
type EntryGates struct {
	Trigger     bool `json:"trigger"`      // Band crossing that arms the strategy
	RSILevel    bool `json:"rsi_level"`    // Bounded RSI window
	BandPhases  bool `json:"band_phases"`  // Companion band phase requirements
	VolumeFloor bool `json:"volume_floor"` // Volume sufficiency on the last bar
	RSISlope    bool `json:"rsi_slope"`    // |RSI(n-1)-RSI(n-2)| within bound
	VolumeRatio bool `json:"volume_ratio"` // Delta-volume ratio window
	Unblocked   bool `json:"unblocked"`    // Protection rules do not block this kind
}

// Satisfied reports whether every gate passed.
func (g EntryGates) Satisfied() bool {
	return g.Trigger && g.RSILevel && g.BandPhases &&
		g.VolumeFloor && g.RSISlope && g.VolumeRatio && g.Unblocked
}

// EntrySignal is the tagged result of evaluating one entry strategy.
type EntrySignal struct {
	Kind   domain.PositionKind `json:"kind"`
	Gates  EntryGates          `json:"gates"`
	Reason string              `json:"reason"`
}

// entryOrder is the strict priority order; the first satisfied strategy
// wins and only one position is entered per bar.
var entryOrder = [4]domain.PositionKind{
	domain.KindShort,
	domain.KindLongVI1,
	domain.KindLongVI2,
	domain.KindLongReentry,
}

// evaluateEntry runs the entry gates for a flat book. Returns the chosen
// signal and every per-strategy gate breakdown for logging.
func (r Rules) evaluateEntry(view domain.MarketView, st *domain.StrategyState, now time.Time) (domain.Decision, []EntrySignal) {
	// Global safety rule: RSI outside the extreme zone blocks every entry.
	if view.RSI < r.RSIExtremeLow || view.RSI > r.RSIExtremeHigh {
		return domain.Hold(fmt.Sprintf("RSI %.2f outside [%.0f,%.0f] extreme zone", view.RSI, r.RSIExtremeLow, r.RSIExtremeHigh)), nil
	}

	aux := r.auxGates(view)
	signals := make([]EntrySignal, 0, len(entryOrder))
	for _, kind := range entryOrder {
		sig := r.entrySignal(kind, view, st, now, aux)
		signals = append(signals, sig)
		if sig.Gates.Satisfied() {
			return domain.Decision{
				Action: domain.ActionEnter,
				Kind:   kind,
				Reason: sig.Reason,
			}, signals
		}
	}
	return domain.Hold("no entry strategy ready"), signals
}

// auxGates evaluates the shared volume/slope windows once per bar.
func (r Rules) auxGates(view domain.MarketView) EntryGates {
	g := EntryGates{
		VolumeFloor: view.Volume >= r.MinVolume,
		RSISlope:    true,
		VolumeRatio: true,
	}
	if r.MaxRSIJump > 0 {
		jump := view.RSI - view.PrevRSI
		if jump < 0 {
			jump = -jump
		}
		g.RSISlope = jump <= r.MaxRSIJump
	}
	if view.PrevVolume > 0 {
		ratio := view.Volume / view.PrevVolume
		g.VolumeRatio = ratio >= r.MinVolumeRatio && ratio <= r.MaxVolumeRatio
	}
	return g
}

func (r Rules) entrySignal(kind domain.PositionKind, view domain.MarketView, st *domain.StrategyState, now time.Time, aux EntryGates) EntrySignal {
	g := EntryGates{
		VolumeFloor: aux.VolumeFloor,
		RSISlope:    aux.RSISlope,
		VolumeRatio: aux.VolumeRatio,
		Unblocked:   !r.kindBlocked(kind, st, now),
	}

	switch kind {
	case domain.KindShort:
		g.Trigger = view.VI1.Crossed && view.VI1.Direction == domain.CrossingUp
		g.RSILevel = view.RSI <= 50
		g.BandPhases = view.VI2.Phase == domain.PhaseBearish && view.VI3.Phase == domain.PhaseBearish
	case domain.KindLongVI1:
		g.Trigger = view.VI1.Crossed && view.VI1.Direction == domain.CrossingDown
		g.RSILevel = view.RSI >= 45
		g.BandPhases = view.VI2.Phase == domain.PhaseBullish && view.VI3.Phase == domain.PhaseBullish
	case domain.KindLongVI2:
		g.Trigger = view.VI2.Crossed && view.VI2.Direction == domain.CrossingDown
		g.RSILevel = view.RSI >= 45
		g.BandPhases = view.VI1.Phase == domain.PhaseBullish
	case domain.KindLongReentry:
		g.Trigger = view.VI2.Crossed && view.VI2.Direction == domain.CrossingDown
		g.RSILevel = view.RSI >= 45
		g.BandPhases = view.VI1.Phase == domain.PhaseBullish && view.VI3.Phase == domain.PhaseBullish
	}

	return EntrySignal{
		Kind:   kind,
		Gates:  g,
		Reason: fmt.Sprintf("%s gates satisfied at RSI %.2f", kind, view.RSI),
	}
}

// kindBlocked applies the protection rules that suppress otherwise-armed
// entries: the VI1 phase-change dwell and the post-LONG re-entry blocks.
func (r Rules) kindBlocked(kind domain.PositionKind, st *domain.StrategyState, now time.Time) bool {
	// VI1 phase-change protection: a fresh flip blocks counter-phase
	// entries, never the one aligned with it.
	if r.VI1Protection > 0 && !st.VI1PhaseChangedAt.IsZero() &&
		now.Sub(st.VI1PhaseChangedAt) < r.VI1Protection {
		if kind == domain.KindShort && st.VI1Phase == domain.PhaseBullish {
			return true
		}
		if kind.IsLong() && st.VI1Phase == domain.PhaseBearish {
			return true
		}
	}

	last := st.LastPositionKind
	if last == nil {
		return false
	}
	// A LONG of any flavor forbids the next LONG_VI2; a LONG_REENTRY
	// forbids every LONG until a different kind trades.
	if kind == domain.KindLongVI2 && last.IsLong() {
		return true
	}
	if kind.IsLong() && *last == domain.KindLongReentry {
		return true
	}
	return false
}
