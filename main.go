package main

import (
	"context"
	"log" // standard log only for fatal errors before the logger is up
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/config"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/adapters/brevo"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/adapters/krakenfutures"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/adapters/krakenws"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/adapters/logger"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/adapters/sqlite"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/adapters/statefile"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/app"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/bootstrap"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/monitor"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/reliability"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/risk"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/scheduler"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/strategy/indicators"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	var appLogger *logger.StdLogger
	if cfg.LogFile != "" {
		rotating, closer := logger.NewRotating(cfg.LogLevel, logger.RotationConfig{Path: cfg.LogFile})
		defer closer.Close()
		appLogger = rotating
	} else {
		appLogger = logger.NewStdLogger(cfg.LogLevel)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize State Store and Trade Repository
	stateStore, err := statefile.NewStore(cfg.StatePath, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize state store")
		log.Fatalf("FATAL: Failed to initialize state store: %v", err)
	}
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trade repository")
		log.Fatalf("FATAL: Failed to initialize trade repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing trade repository")
		}
	}()

	// 4. Initialize Exchange Client (Kraken Futures Adapter)
	kraken, err := krakenfutures.New(krakenfutures.Config{
		APIKey:    cfg.APIKey,
		APISecret: cfg.SecretKey,
		BaseURL:   cfg.BaseURL,
		ChartURL:  cfg.ChartURL,
		Timeout:   cfg.AttemptTimeout,
		Logger:    appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Kraken Futures client")
		log.Fatalf("FATAL: Failed to initialize Kraken Futures client: %v", err)
	}

	// 5. Load the bootstrap seed (optional) and build the strategy engine.
	seed, err := bootstrap.Load(ctx, cfg.SeedPath, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load bootstrap seed")
		log.Fatalf("FATAL: Failed to load bootstrap seed: %v", err)
	}
	thresholds, err := strategy.ParseThresholdOverride(cfg.ThresholdOverride)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Invalid exit threshold override")
		log.Fatalf("FATAL: Invalid exit threshold override: %v", err)
	}
	engine, err := strategy.New(strategy.Config{
		Indicators:     buildIndicators(cfg, seed),
		BufferCapacity: cfg.BufferCapacity,
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
	}, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to build strategy engine")
		log.Fatalf("FATAL: Failed to build strategy engine: %v", err)
	}
	requiredLiveBars := cfg.RequiredLiveBars
	if seed != nil {
		if seed.RequiredLiveBars > 0 {
			requiredLiveBars = seed.RequiredLiveBars
		}
		if len(seed.Candles) > 0 {
			added, err := engine.UpdateMarketData(ctx, seed.Candles)
			if err != nil {
				appLogger.Error(ctx, err, "FATAL: Failed to replay seed candles")
				log.Fatalf("FATAL: Failed to replay seed candles: %v", err)
			}
			appLogger.Info(ctx, "Seed history replayed", map[string]interface{}{"bars": added})
		}
	}

	// 6. Initialize Notifier
	var notifier ports.Notifier = brevo.Noop{}
	if cfg.BrevoAPIKey != "" {
		brevoNotifier, err := brevo.New(brevo.Config{
			APIKey:      cfg.BrevoAPIKey,
			SenderEmail: cfg.BrevoSenderEmail,
			ToEmail:     cfg.BrevoReceiverEmail,
			Logger:      appLogger,
		})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize Brevo notifier")
			log.Fatalf("FATAL: Failed to initialize Brevo notifier: %v", err)
		}
		notifier = brevoNotifier
	}

	// 7. Sizing and Reliability
	sizer, err := risk.NewSizer(risk.Config{
		Leverage:           cfg.Leverage,
		Utilization:        cfg.Utilization,
		MinSize:            cfg.MinSize,
		MaxSize:            cfg.MaxSize,
		MinAvailableMargin: cfg.MinAvailableMargin,
	}, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize sizer")
		log.Fatalf("FATAL: Failed to initialize sizer: %v", err)
	}
	retrier := reliability.NewRetrier(reliability.RetryConfig{
		MaxAttempts:    cfg.RetryMaxAttempts,
		MinBackoff:     cfg.RetryMinDelay,
		MaxBackoff:     cfg.RetryMaxDelay,
		AttemptTimeout: cfg.AttemptTimeout,
	}, appLogger)
	breaker := reliability.NewCircuitBreaker(reliability.BreakerConfig{
		FailureThreshold: cfg.BreakerThreshold,
		OpenDuration:     cfg.BreakerOpenWindow,
	}, appLogger)

	// 8. Optional live OHLC cross-check over the websocket feed.
	var stream *krakenws.Stream
	if cfg.WSEnable {
		stream, err = krakenws.New(krakenws.Config{
			URL:    cfg.WSURL,
			Symbol: cfg.Symbol,
			Logger: appLogger,
			OnDrift: func(rest, ws domain.Candle) {
				appLogger.Warn(ctx, "REST/WS candle drift", map[string]interface{}{
					"bar":        rest.OpenTime,
					"rest_close": rest.Close,
					"ws_close":   ws.Close,
				})
			},
		})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize websocket stream")
			log.Fatalf("FATAL: Failed to initialize websocket stream: %v", err)
		}
	}

	// 9. Metrics and the Trading Service
	registry := prometheus.NewRegistry()
	metrics := monitor.NewMetrics(registry)

	deps := app.Deps{
		Logger:     appLogger,
		MarketData: kraken,
		Account:    kraken,
		Executor:   kraken,
		Notifier:   notifier,
		StateStore: stateStore,
		TradeRepo:  repo,
		Strategy:   engine,
		Sizer:      sizer,
		Retrier:    retrier,
		Breaker:    breaker,
		Stats:      reliability.NewErrorStats(),
		Metrics:    metrics,
	}
	if stream != nil {
		deps.Comparer = stream
	}
	service, err := app.NewTradingService(app.Config{
		Symbol:           cfg.Symbol,
		FetchCount:       cfg.FetchCount,
		RequiredLiveBars: requiredLiveBars,
	}, deps)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to build trading service")
		log.Fatalf("FATAL: Failed to build trading service: %v", err)
	}
	if err := service.Init(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}

	monServer := monitor.NewServer(cfg.MetricsAddr, registry, service, appLogger)
	go func() {
		if err := monServer.Start(ctx); err != nil {
			appLogger.Error(ctx, err, "Monitoring server stopped")
		}
	}()
	if stream != nil {
		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				appLogger.Error(ctx, err, "Websocket stream stopped")
			}
		}()
	}

	// 10. Run the bar-boundary scheduler until shutdown.
	sched, err := scheduler.New(scheduler.Config{
		Interval:       cfg.CandleInterval,
		BoundarySlack:  cfg.BoundarySlack,
		DebounceWindow: cfg.DebounceWindow,
	}, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to build scheduler")
		log.Fatalf("FATAL: Failed to build scheduler: %v", err)
	}
	appLogger.Info(ctx, "Bot started", map[string]interface{}{
		"symbol":   cfg.Symbol,
		"interval": cfg.CandleInterval.String(),
		"metrics":  cfg.MetricsAddr,
	})
	if err := sched.Run(ctx, service.RunCycle); err != nil && ctx.Err() == nil {
		appLogger.Error(ctx, err, "Scheduler stopped unexpectedly")
	}

	// 11. Graceful shutdown: flush state, stop the HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := service.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, err, "Error flushing state on shutdown")
	}
	if err := monServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, err, "Error stopping monitoring server")
	}
	appLogger.Info(shutdownCtx, "Bot stopped")
}

// buildIndicators merges the configured indicator parameters with the
// band state carried in the seed file. Seed values win over env settings:
// they are a snapshot of the exchange's own indicator state.
func buildIndicators(cfg *config.Config, seed *bootstrap.Seed) indicators.Config {
	band := func(name string, s config.BandSettings, bs *bootstrap.BandSeed) indicators.BandConfig {
		out := indicators.BandConfig{
			Name:       name,
			Multiplier: s.Multiplier,
			SeedLevel:  s.SeedLevel,
			SeedPhase:  s.SeedPhase,
			SeedTime:   s.SeedTime,
		}
		if bs != nil && bs.Level > 0 {
			out.SeedLevel = bs.Level
			out.SeedPhase = bs.Phase
			out.SeedTime = bs.Time
		}
		return out
	}
	var vi1, vi2, vi3 *bootstrap.BandSeed
	if seed != nil {
		vi1, vi2, vi3 = &seed.VI1, &seed.VI2, &seed.VI3
	}
	return indicators.Config{
		RSI:       indicators.RSIConfig{IndicatorConfig: indicators.IndicatorConfig{Period: cfg.RSIPeriod}},
		LegacyRSI: indicators.LegacyRSIConfig{IndicatorConfig: indicators.IndicatorConfig{Period: cfg.LegacyRSIPeriod}},
		ATR:       indicators.ATRConfig{IndicatorConfig: indicators.IndicatorConfig{Period: cfg.ATRPeriod}},
		VI1:       band("VI1", cfg.VI1, vi1),
		VI2:       band("VI2", cfg.VI2, vi2),
		VI3:       band("VI3", cfg.VI3, vi3),
	}
}
