// fetch_candles downloads closed 15-minute bars from Kraken Futures and
// writes them to a CSV file for the replay and sweep tools.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/config"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/adapters/krakenfutures"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/adapters/logger"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/utils"
)

func main() {
	count := flag.Int("count", 4000, "how many closed bars to fetch")
	out := flag.String("out", "data/candles.csv", "output CSV path")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	client, err := krakenfutures.New(krakenfutures.Config{
		APIKey:    cfg.APIKey,
		APISecret: cfg.SecretKey,
		BaseURL:   cfg.BaseURL,
		ChartURL:  cfg.ChartURL,
		Logger:    appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Kraken Futures client: %v", err)
	}

	candles, err := client.FetchClosedBars(ctx, cfg.Symbol, *count)
	if err != nil {
		appLogger.Error(ctx, err, "Fetching bars failed")
		log.Fatalf("FATAL: Fetching bars failed: %v", err)
	}
	if err := utils.WriteCandlesToCSV(candles, *out); err != nil {
		appLogger.Error(ctx, err, "Writing CSV failed")
		log.Fatalf("FATAL: Writing CSV failed: %v", err)
	}
	appLogger.Info(ctx, "Bars written", map[string]interface{}{
		"symbol": cfg.Symbol,
		"bars":   len(candles),
		"file":   *out,
	})
}
