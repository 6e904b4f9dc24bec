// Package optimization sweeps decision-rule parameters over a historical
// replay and ranks the combinations by a configurable score. It drives the
// same engine the live loop runs, so a tuned table transfers directly.
package optimization

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy/analytics"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy/backtesting"
)

// Tunable parameter names accepted by ParameterRange.Name.
const (
	ParamEmergencyRSIRise = "emergency_rsi_rise"
	ParamControlRisePct   = "control_rise_pct"
	ParamMaxRSIJump       = "max_rsi_jump"
	ParamMinVolume        = "min_volume"
	ParamMinVolumeRatio   = "min_volume_ratio"
	ParamMaxVolumeRatio   = "max_volume_ratio"
	ParamProtectionHours  = "protection_hours"
	ParamControlHours     = "control_hours"
)

// ParameterRange is one swept dimension of the grid.
type ParameterRange struct {
	Name string
	Min  float64
	Max  float64
	Step float64
}

// Result is one evaluated parameter combination.
type Result struct {
	Parameters map[string]float64
	Report     *analytics.Report
	Score      float64
}

// Config holds the sweep setup. Backtest carries everything the replay
// needs; its Strategy.Rules fields named by Ranges are overridden per
// combination.
type Config struct {
	Ranges   []ParameterRange
	Backtest backtesting.Config
	// Workers bounds concurrent replays; defaults to 4.
	Workers int
	// Score ranks a report; defaults to DefaultScore.
	Score func(*analytics.Report) float64
}

// Optimizer runs the grid search.
type Optimizer struct {
	cfg    Config
	logger ports.Logger
}

// New creates an Optimizer.
func New(cfg Config, logger ports.Logger) *Optimizer {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Score == nil {
		cfg.Score = DefaultScore
	}
	return &Optimizer{cfg: cfg, logger: logger}
}

// Run replays every combination of the configured ranges and returns the
// results ordered by score, best first.
func (o *Optimizer) Run(ctx context.Context, candles []domain.Candle) ([]Result, error) {
	combos := combinations(o.cfg.Ranges)
	if len(combos) == 0 {
		return nil, fmt.Errorf("no parameter combinations to evaluate")
	}
	o.logger.Info(ctx, "Starting parameter sweep", map[string]interface{}{
		"combinations": len(combos),
		"bars":         len(candles),
		"workers":      o.cfg.Workers,
	})

	results := make([]Result, 0, len(combos))
	resultCh := make(chan Result, len(combos))
	sem := make(chan struct{}, o.cfg.Workers)
	var wg sync.WaitGroup

	for _, params := range combos {
		wg.Add(1)
		go func(params map[string]float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			cfg := o.cfg.Backtest
			if err := applyParams(&cfg.Strategy.Rules, params); err != nil {
				o.logger.Warn(ctx, "Skipping combination", map[string]interface{}{
					"params": params, "error": err.Error(),
				})
				return
			}
			res, err := backtesting.Run(ctx, cfg, candles, ports.NopLogger{})
			if err != nil {
				o.logger.Warn(ctx, "Replay failed", map[string]interface{}{
					"params": params, "error": err.Error(),
				})
				return
			}
			report := analytics.Analyze(res.Trades, cfg.InitialBalance)
			resultCh <- Result{Parameters: params, Report: report, Score: o.cfg.Score(report)}
		}(params)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()
	for r := range resultCh {
		results = append(results, r)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > 0 {
		o.logger.Info(ctx, "Sweep complete", map[string]interface{}{
			"evaluated":  len(results),
			"best_score": results[0].Score,
			"best":       results[0].Parameters,
		})
	}
	return results, nil
}

// applyParams writes the named values onto the rule set.
func applyParams(rules *strategy.Rules, params map[string]float64) error {
	for name, v := range params {
		switch name {
		case ParamEmergencyRSIRise:
			rules.EmergencyRSIRise = v
		case ParamControlRisePct:
			rules.ControlRisePct = v
		case ParamMaxRSIJump:
			rules.MaxRSIJump = v
		case ParamMinVolume:
			rules.MinVolume = v
		case ParamMinVolumeRatio:
			rules.MinVolumeRatio = v
		case ParamMaxVolumeRatio:
			rules.MaxVolumeRatio = v
		case ParamProtectionHours:
			rules.ProtectionWindow = time.Duration(v * float64(time.Hour))
		case ParamControlHours:
			rules.ControlWindow = time.Duration(v * float64(time.Hour))
		default:
			return fmt.Errorf("unknown parameter %q", name)
		}
	}
	return nil
}

// combinations expands the ranges into the full cartesian grid.
func combinations(ranges []ParameterRange) []map[string]float64 {
	var out []map[string]float64
	current := make(map[string]float64)

	var walk func(int)
	walk = func(i int) {
		if i == len(ranges) {
			combo := make(map[string]float64, len(current))
			for k, v := range current {
				combo[k] = v
			}
			out = append(out, combo)
			return
		}
		r := ranges[i]
		if r.Step <= 0 {
			current[r.Name] = r.Min
			walk(i + 1)
			delete(current, r.Name)
			return
		}
		// Half-step epsilon absorbs float accumulation at the upper edge.
		for v := r.Min; v <= r.Max+r.Step/2; v += r.Step {
			current[r.Name] = v
			walk(i + 1)
		}
		delete(current, r.Name)
	}
	walk(0)
	return out
}

// DefaultScore balances profitability against drawdown. An infinite
// profit factor (no losing trades) is capped so one lucky trade cannot
// dominate the ranking.
func DefaultScore(r *analytics.Report) float64 {
	if r.TotalTrades == 0 {
		return math.Inf(-1)
	}
	pf := r.ProfitFactor
	if math.IsInf(pf, 1) || pf > 10 {
		pf = 10
	}
	return r.ReturnOnInvestment*0.4 +
		r.WinRate*0.3 +
		pf/10*0.2 +
		(1-r.MaxDrawdown)*0.1
}
