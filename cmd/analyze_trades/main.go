// analyze_trades prints the performance report for the trades recorded by
// the live bot in the SQLite history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/config"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/adapters/logger"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/adapters/sqlite"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy/analytics"
)

func main() {
	balance := flag.Float64("balance", 1000, "starting balance for the drawdown math")
	limit := flag.Int("limit", 0, "most recent trades to include, 0 means all")
	recent := flag.Int("recent", 10, "how many recent trades to list")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to open trade database: %v", err)
	}
	defer repo.Close()

	trades, err := repo.FindBySymbol(ctx, cfg.Symbol, *limit)
	if err != nil {
		log.Fatalf("FATAL: Loading trades failed: %v", err)
	}
	if len(trades) == 0 {
		fmt.Printf("No recorded trades for %s in %s\n", cfg.Symbol, cfg.DBPath)
		return
	}

	report := analytics.Analyze(trades, *balance)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Symbol\t%s\n", cfg.Symbol)
	fmt.Fprintf(w, "Trades\t%d (%d wins, %d losses)\n", report.TotalTrades, report.WinningTrades, report.LosingTrades)
	fmt.Fprintf(w, "Win rate\t%.1f%%\n", report.WinRate*100)
	fmt.Fprintf(w, "Total PNL\t%.2f\n", report.TotalPNL)
	fmt.Fprintf(w, "Profit factor\t%.2f\n", report.ProfitFactor)
	fmt.Fprintf(w, "Expectancy\t%.2f\n", report.Expectancy)
	fmt.Fprintf(w, "Max drawdown\t%.1f%%\n", report.MaxDrawdown*100)
	fmt.Fprintf(w, "Avg hold time\t%s\n", report.AverageHoldTime.Round(time.Minute))
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
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Month\tPNL")
	for _, m := range report.MonthlyReturns() {
		fmt.Fprintf(w, "%s\t%.2f\n", m.Month.Format("2006-01"), m.PNL)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Recent trades")
	fmt.Fprintln(w, "Exit time\tKind\tEntry\tExit\tSize\tPNL\tReason")
	n := *recent
	if n > len(trades) {
		n = len(trades)
	}
	// FindBySymbol returns newest first.
	for _, t := range trades[:n] {
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%.4f\t%.2f\t%s\n",
			t.ExitTime.Format("2006-01-02 15:04"), t.Kind, t.EntryPrice, t.ExitPrice, t.Size, t.PNL, t.ExitReason)
	}
	w.Flush()
}
