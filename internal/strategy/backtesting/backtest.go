// Package backtesting replays the decision rules over historical candles,
// filling orders at the bar close. It exists for threshold calibration and
// regression checks, not for execution-quality simulation.
package backtesting

import (
	"context"
	"fmt"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy"
)

// Config holds the backtest parameters.
type Config struct {
	Symbol         string
	InitialBalance float64
	// Leverage and Utilization mirror the live sizing.
	Leverage    int
	Utilization float64
	// FeeBPS is the taker fee per fill in basis points.
	FeeBPS float64
	// WarmupBars is how many bars must pass before entries are allowed,
	// on top of the indicator warm-up.
	WarmupBars int

	Strategy strategy.Config
}

// EquityPoint is one sample of the equity curve, taken after each closed
// trade.
type EquityPoint struct {
	Time    time.Time
	Balance float64
}

// Result holds the replay outcome.
type Result struct {
	Trades       []*domain.Trade
	FinalBalance float64
	TotalFees    float64
	BarsReplayed int
	Decisions    map[domain.Action]int
	EquityCurve  []EquityPoint
}

// Run replays candles through the decision engine. Candles must be sorted
// by open time ascending.
func Run(ctx context.Context, cfg Config, candles []domain.Candle, logger ports.Logger) (*Result, error) {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be positive")
	}
	if cfg.Leverage <= 0 {
		cfg.Leverage = 10
	}
	if cfg.Utilization <= 0 || cfg.Utilization > 1 {
		cfg.Utilization = 0.95
	}
	if cfg.Strategy.BufferCapacity < len(candles) {
		cfg.Strategy.BufferCapacity = len(candles)
	}

	engine, err := strategy.New(cfg.Strategy, logger)
	if err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}
	if len(candles) <= engine.RequiredBars() {
		return nil, fmt.Errorf("%w: have %d candles, need more than %d",
			ports.ErrInsufficientHistory, len(candles), engine.RequiredBars())
	}

	warmup := cfg.WarmupBars
	if warmup <= 0 {
		warmup = 1
	}
	state := domain.StrategyState{}
	state.Progression.Required = warmup

	result := &Result{
		FinalBalance: cfg.InitialBalance,
		Decisions:    make(map[domain.Action]int),
	}
	var position *domain.Position

	for _, candle := range candles {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		added, err := engine.UpdateMarketData(ctx, []domain.Candle{candle})
		if err != nil {
			return nil, fmt.Errorf("replaying bar %v: %w", candle.OpenTime, err)
		}
		state.Progression.RecordBars(added)
		result.BarsReplayed++

		// Decide at the bar close, exactly like the live cycle.
		now := candle.OpenTime.Add(15 * time.Minute)
		decision, view, err := engine.Evaluate(ctx, position, &state, now)
		if err != nil {
			return nil, fmt.Errorf("evaluating bar %v: %w", candle.OpenTime, err)
		}
		result.Decisions[decision.Action]++

		switch decision.Action {
		case domain.ActionEnter:
			size := orderSize(result.FinalBalance, cfg, view.Close)
			if size <= 0 {
				continue
			}
			fee := fee(cfg, size, view.Close)
			result.TotalFees += fee
			result.FinalBalance -= fee
			entryRSI := view.RSI
			position = &domain.Position{
				Kind:       decision.Kind,
				EntryPrice: view.Close,
				EntryTime:  now,
				Size:       size,
				EntryRSI:   &entryRSI,
			}

		case domain.ActionExit:
			pnl := position.UnrealizedPNL(view.Close)
			exitFee := fee(cfg, position.Size, view.Close)
			result.TotalFees += exitFee
			result.FinalBalance += pnl - exitFee
			exitRSI := view.RSI
			result.Trades = append(result.Trades, &domain.Trade{
				Symbol:     cfg.Symbol,
				Kind:       position.Kind,
				EntryPrice: position.EntryPrice,
				ExitPrice:  view.Close,
				Size:       position.Size,
				PNL:        pnl,
				EntryRSI:   position.EntryRSI,
				ExitRSI:    &exitRSI,
				EntryTime:  position.EntryTime,
				ExitTime:   now,
				ExitReason: decision.ExitReason,
			})
			result.EquityCurve = append(result.EquityCurve, EquityPoint{Time: now, Balance: result.FinalBalance})
			state.RecordExit(position.Kind, now)
			position = nil
		}
	}

	logger.Info(ctx, "Backtest complete", map[string]interface{}{
		"bars":          result.BarsReplayed,
		"trades":        len(result.Trades),
		"final_balance": result.FinalBalance,
	})
	return result, nil
}

func orderSize(balance float64, cfg Config, price float64) float64 {
	if balance <= 0 || price <= 0 {
		return 0
	}
	size := balance * float64(cfg.Leverage) * cfg.Utilization / price
	// Truncate to the exchange's 4-decimal contract precision.
	size = float64(int64(size*10000)) / 10000
	if size < 0.0001 {
		return 0
	}
	return size
}

func fee(cfg Config, size, price float64) float64 {
	return size * price * cfg.FeeBPS / 10000
}
