// Package strategy implements the per-bar trading pipeline: it owns the
// candle buffer and incremental indicator state, and evaluates the
// deterministic entry/exit rules for the single open position.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/market"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy/indicators"
)

// Rules carries every tunable of the decision engine. Zero values are
// replaced by the strategy defaults in New.
type Rules struct {
	// Entry gates
	MinVolume      float64
	MaxRSIJump     float64
	MinVolumeRatio float64
	MaxVolumeRatio float64
	RSIExtremeLow  float64
	RSIExtremeHigh float64
	VI1Protection  time.Duration

	// Exit state machine
	ProtectionWindow time.Duration
	ControlWindow    time.Duration
	ControlRisePct   float64
	EmergencyRSIRise float64
	Thresholds       ThresholdTable
}

// Config assembles an Engine.
type Config struct {
	Indicators     indicators.Config
	BufferCapacity int
	Rules          Rules
}

// Engine is the ports.Strategy implementation: candle buffer, incremental
// indicator state, and the decision rules. The scheduler-invoked cycle is
// the single writer; the Engine carries no locking of its own.
type Engine struct {
	logger ports.Logger
	buffer *market.Buffer
	state  *indicators.State
	rules  Rules
}

// New creates the trading engine.
func New(cfg Config, log ports.Logger) (*Engine, error) {
	if log == nil {
		return nil, errors.New("logger is required for strategy engine")
	}
	rules := cfg.Rules
	if rules.RSIExtremeHigh <= rules.RSIExtremeLow {
		rules.RSIExtremeLow, rules.RSIExtremeHigh = 10, 86
	}
	if rules.VI1Protection <= 0 {
		rules.VI1Protection = 72 * time.Hour
	}
	if rules.ProtectionWindow <= 0 {
		rules.ProtectionWindow = 7 * time.Hour
	}
	if rules.ControlWindow <= 0 {
		rules.ControlWindow = 3 * time.Hour
	}
	if rules.ControlRisePct <= 0 {
		rules.ControlRisePct = 1.0
	}
	if rules.EmergencyRSIRise <= 0 {
		rules.EmergencyRSIRise = 18
	}
	if rules.Thresholds == nil {
		rules.Thresholds = DefaultThresholds()
	}
	if rules.MaxVolumeRatio <= 0 {
		rules.MinVolumeRatio, rules.MaxVolumeRatio = 0.1, 10
	}
	if rules.MinVolumeRatio > rules.MaxVolumeRatio {
		return nil, fmt.Errorf("MinVolumeRatio %.2f exceeds MaxVolumeRatio %.2f", rules.MinVolumeRatio, rules.MaxVolumeRatio)
	}

	return &Engine{
		logger: log,
		buffer: market.NewBuffer(cfg.BufferCapacity),
		state:  indicators.NewState(cfg.Indicators),
		rules:  rules,
	}, nil
}

// RequiredBars is the minimum closed-bar history before Evaluate can
// produce anything other than an insufficient-history hold.
func (e *Engine) RequiredBars() int {
	return e.state.RequiredBars()
}

// BufferStatus exposes the buffer summary for logging and health checks.
func (e *Engine) BufferStatus() market.Status {
	return e.buffer.Status()
}

// UpdateMarketData merges freshly fetched bars into the buffer and
// advances the indicator state over the newly accepted ones. The update
// runs on a copy and commits only on success, so an aborted cycle never
// leaves a half-updated running average behind.
func (e *Engine) UpdateMarketData(ctx context.Context, bars []domain.Candle) (int, error) {
	closed := make([]domain.Candle, 0, len(bars))
	for _, c := range bars {
		if c.IsClosed() {
			closed = append(closed, c)
		}
	}
	if skipped := len(bars) - len(closed); skipped > 0 {
		e.logger.Debug(ctx, "Skipping zero-volume bars", map[string]interface{}{"skipped": skipped})
	}

	added, skippedBars, err := e.buffer.AddBatch(closed)
	if err != nil {
		return 0, fmt.Errorf("merging bars into buffer: %w", err)
	}
	if added == 0 {
		e.logger.Debug(ctx, "No new bars accepted", map[string]interface{}{"skipped": skippedBars})
		return 0, nil
	}

	next := e.state.Clone()
	for _, c := range e.buffer.All() {
		if !c.OpenTime.After(next.LastBarTime()) {
			continue
		}
		next.Update(c)
	}
	e.state = next

	e.logger.Debug(ctx, "Market data updated", map[string]interface{}{
		"added":   added,
		"skipped": skippedBars,
		"bars":    e.state.Bars(),
		"lastBar": e.state.LastBarTime(),
	})
	return added, nil
}

// Evaluate runs the decision rules for the most recent closed bar. The
// VI1 phase memory in st is refreshed first so the protection and
// last-resort rules see the flip that this bar may have caused.
// Insufficient history degrades to a hold, never an error.
func (e *Engine) Evaluate(ctx context.Context, pos *domain.Position, st *domain.StrategyState, now time.Time) (domain.Decision, domain.MarketView, error) {
	view, err := e.state.View()
	if err != nil {
		if errors.Is(err, ports.ErrInsufficientHistory) {
			return domain.Hold(err.Error()), domain.MarketView{}, nil
		}
		return domain.Decision{}, domain.MarketView{}, err
	}
	if !view.RSIReady || !view.ATRReady {
		return domain.Hold(fmt.Sprintf("indicators warming up: %d of %d bars", e.state.Bars(), e.RequiredBars())), view, nil
	}

	st.RecordPhase(view.VI1.Phase, view.BarTime)

	if pos != nil {
		return e.rules.evaluateExit(view, pos, st, now), view, nil
	}

	if !st.Progression.TransitionComplete {
		return domain.Hold(fmt.Sprintf("data progression incomplete: %d of %d live bars",
			st.Progression.BarsIngested, st.Progression.Required)), view, nil
	}

	decision, signals := e.rules.evaluateEntry(view, st, now)
	if decision.Action == domain.ActionEnter {
		e.logger.Info(ctx, "Entry strategy armed", map[string]interface{}{
			"kind":   decision.Kind,
			"reason": decision.Reason,
		})
	} else {
		for _, sig := range signals {
			if sig.Gates.Trigger {
				e.logger.Debug(ctx, "Entry trigger without full gates", map[string]interface{}{
					"kind":  sig.Kind,
					"gates": sig.Gates,
				})
			}
		}
	}
	return decision, view, nil
}
