package strategy

import (
	"fmt"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// evaluateExit runs the exit state machine for an open position. Conditions
// are checked in a fixed order and the first match is terminal for the bar:
// protection window, 3h price control, emergency RSI, target threshold,
// last-resort phase flip.
func (r Rules) evaluateExit(view domain.MarketView, pos *domain.Position, st *domain.StrategyState, now time.Time) domain.Decision {
	elapsed := pos.Age(now)

	// Protection window: every kind except LONG_VI2 holds unconditionally
	// before the dwell time, with one carve-out: a SHORT moving against
	// us is force-closed between the control mark and the window end.
	if pos.Kind != domain.KindLongVI2 && elapsed < r.ProtectionWindow {
		if pos.Kind == domain.KindShort && elapsed >= r.ControlWindow {
			if rise := pos.PriceChangePct(view.Close); rise >= r.ControlRisePct {
				return exitDecision(pos.Kind, domain.ExitReasonControl3h,
					fmt.Sprintf("price +%.2f%% against short after %s", rise, elapsed.Round(time.Minute)))
			}
		}
		return domain.Hold(fmt.Sprintf("protection window: %s elapsed of %s", elapsed.Round(time.Minute), r.ProtectionWindow))
	}

	// Emergency exit: a SHORT whose RSI ran far above the entry reading.
	// Needs the entry RSI; a position recovered without it degrades to
	// the last-resort branch only.
	if pos.Kind == domain.KindShort && pos.EntryRSI != nil &&
		view.RSI > *pos.EntryRSI+r.EmergencyRSIRise {
		return exitDecision(pos.Kind, domain.ExitReasonEmergency,
			fmt.Sprintf("RSI %.2f rose more than %.0f above entry %.2f", view.RSI, r.EmergencyRSIRise, *pos.EntryRSI))
	}

	// Target exit: the RSI move since entry reached the bucketed threshold.
	if pos.EntryRSI != nil {
		move := view.RSI - *pos.EntryRSI
		if pos.Kind == domain.KindShort {
			move = *pos.EntryRSI - view.RSI
		}
		threshold, err := r.Thresholds.For(pos.Kind, *pos.EntryRSI)
		if err == nil && move >= threshold {
			return exitDecision(pos.Kind, domain.ExitReasonTarget,
				fmt.Sprintf("RSI moved %.2f >= threshold %.2f (entry %.2f)", move, threshold, *pos.EntryRSI))
		}
	}

	// Last resort: the tight band recrossed against the position after
	// entry. Fires even when the entry RSI went missing.
	against := domain.PhaseBullish
	if pos.Kind.IsLong() {
		against = domain.PhaseBearish
	}
	if view.VI1.Phase == against && st.VI1PhaseChangedAt.After(pos.EntryTime) {
		return exitDecision(pos.Kind, domain.ExitReasonLastResort,
			fmt.Sprintf("VI1 recrossed %s against open %s", view.VI1.Phase, pos.Kind))
	}

	return domain.Hold(fmt.Sprintf("no exit condition met for %s after %s", pos.Kind, elapsed.Round(time.Minute)))
}

func exitDecision(kind domain.PositionKind, reason domain.ExitReason, detail string) domain.Decision {
	return domain.Decision{
		Action:     domain.ActionExit,
		Kind:       kind,
		ExitReason: reason,
		Reason:     detail,
	}
}
