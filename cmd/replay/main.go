// replay runs the decision rules over a CSV of historical bars and prints
// the performance report. With -sweep it grid-searches the exit tunables
// instead of running a single pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/config"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/adapters/logger"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy/analytics"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy/backtesting"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy/indicators"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy/optimization"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/utils"
)

func main() {
	input := flag.String("candles", "data/candles.csv", "CSV of closed bars")
	balance := flag.Float64("balance", 1000, "starting balance")
	feeBPS := flag.Float64("fee-bps", 5, "taker fee per fill in basis points")
	warmup := flag.Int("warmup", 80, "live bars required before entries")
	sweep := flag.Bool("sweep", false, "grid-search exit tunables instead of a single run")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	candles, err := utils.ReadCandlesFromCSV(*input)
	if err != nil {
		log.Fatalf("FATAL: Loading candles failed: %v", err)
	}

	thresholds, err := strategy.ParseThresholdOverride(cfg.ThresholdOverride)
	if err != nil {
		log.Fatalf("FATAL: Invalid exit threshold override: %v", err)
	}
	btCfg := backtesting.Config{
		Symbol:         cfg.Symbol,
		InitialBalance: *balance,
		Leverage:       cfg.Leverage,
		Utilization:    cfg.Utilization,
		FeeBPS:         *feeBPS,
		WarmupBars:     *warmup,
		Strategy: strategy.Config{
			Indicators:     indicatorsFromConfig(cfg),
			BufferCapacity: len(candles),
			Rules: strategy.Rules{
				MinVolume:        cfg.MinVolume,
				MaxRSIJump:       cfg.MaxRSIJump,
				MinVolumeRatio:   cfg.MinVolumeRatio,
				MaxVolumeRatio:   cfg.MaxVolumeRatio,
				RSIExtremeLow:    cfg.RSIExtremeLow,
				RSIExtremeHigh:   cfg.RSIExtremeHigh,
				VI1Protection:    cfg.VI1Protection,
				ProtectionWindow: cfg.ProtectionWindow,
				ControlWindow:    cfg.ControlWindow,
				ControlRisePct:   cfg.ControlRisePct,
				EmergencyRSIRise: cfg.EmergencyRSIRise,
				Thresholds:       thresholds,
			},
		},
	}

	if *sweep {
		runSweep(ctx, btCfg, candles, appLogger)
		return
	}

	result, err := backtesting.Run(ctx, btCfg, candles, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Replay failed: %v", err)
	}
	printReport(analytics.Analyze(result.Trades, *balance), result)
}

func runSweep(ctx context.Context, btCfg backtesting.Config, candles []domain.Candle, appLogger *logger.StdLogger) {
	opt := optimization.New(optimization.Config{
		Ranges: []optimization.ParameterRange{
			{Name: optimization.ParamEmergencyRSIRise, Min: 12, Max: 24, Step: 3},
			{Name: optimization.ParamControlRisePct, Min: 0.5, Max: 2, Step: 0.5},
		},
		Backtest: btCfg,
	}, appLogger)
	results, err := opt.Run(ctx, candles)
	if err != nil {
		log.Fatalf("FATAL: Sweep failed: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Score\tTrades\tWinRate\tPNL\tMaxDD\tParameters")
	top := results
	if len(top) > 15 {
		top = top[:15]
	}
	for _, r := range top {
		fmt.Fprintf(w, "%.3f\t%d\t%.1f%%\t%.2f\t%.1f%%\t%v\n",
			r.Score, r.Report.TotalTrades, r.Report.WinRate*100,
			r.Report.TotalPNL, r.Report.MaxDrawdown*100, r.Parameters)
	}
	w.Flush()
}

func indicatorsFromConfig(cfg *config.Config) indicators.Config {
	band := func(name string, s config.BandSettings) indicators.BandConfig {
		return indicators.BandConfig{
			Name:       name,
			Multiplier: s.Multiplier,
			SeedLevel:  s.SeedLevel,
			SeedPhase:  s.SeedPhase,
			SeedTime:   s.SeedTime,
		}
	}
	return indicators.Config{
		RSI:       indicators.RSIConfig{IndicatorConfig: indicators.IndicatorConfig{Period: cfg.RSIPeriod}},
		LegacyRSI: indicators.LegacyRSIConfig{IndicatorConfig: indicators.IndicatorConfig{Period: cfg.LegacyRSIPeriod}},
		ATR:       indicators.ATRConfig{IndicatorConfig: indicators.IndicatorConfig{Period: cfg.ATRPeriod}},
		VI1:       band("VI1", cfg.VI1),
		VI2:       band("VI2", cfg.VI2),
		VI3:       band("VI3", cfg.VI3),
	}
}

func printReport(report *analytics.Report, result *backtesting.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Bars replayed\t%d\n", result.BarsReplayed)
	fmt.Fprintf(w, "Trades\t%d (%d wins, %d losses)\n", report.TotalTrades, report.WinningTrades, report.LosingTrades)
	fmt.Fprintf(w, "Win rate\t%.1f%%\n", report.WinRate*100)
	fmt.Fprintf(w, "Total PNL\t%.2f\n", report.TotalPNL)
	fmt.Fprintf(w, "Fees paid\t%.2f\n", result.TotalFees)
	fmt.Fprintf(w, "Final balance\t%.2f\n", result.FinalBalance)
	fmt.Fprintf(w, "Profit factor\t%.2f\n", report.ProfitFactor)
	fmt.Fprintf(w, "Expectancy\t%.2f\n", report.Expectancy)
	fmt.Fprintf(w, "Max drawdown\t%.1f%%\n", report.MaxDrawdown*100)
	fmt.Fprintf(w, "Avg hold time\t%s\n", report.AverageHoldTime)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Kind\tTrades\tWins\tPNL")
	for kind, ks := range report.ByKind {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\n", kind, ks.Trades, ks.Wins, ks.PNL)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit reason\tTrades\tWins\tPNL")
	for reason, rs := range report.ByExitReason {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\n", reason, rs.Trades, rs.Wins, rs.PNL)
	}
	w.Flush()
}
