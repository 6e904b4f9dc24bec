// Package app wires the ports together into the trading service: one
// scheduler-driven cycle per 15-minute bar that fetches data, evaluates
// the rules, executes at most one order, and persists state.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/monitor"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/reliability"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/risk"
)

// CandleComparer cross-checks REST bars against a second transport.
// Advisory only: mismatches are logged, never acted on.
type CandleComparer interface {
	Compare(ctx context.Context, bars []domain.Candle) int
}

// Config holds the service-level settings.
type Config struct {
	Symbol           string
	FetchCount       int
	RequiredLiveBars int
}

// TradingService runs the trading cycle. The scheduler is the single
// writer; the mutex only guards the state document against concurrent
// reads from the health endpoint.
type TradingService struct {
	cfg        Config
	logger     ports.Logger
	marketData ports.MarketDataSource
	account    ports.AccountSource
	executor   ports.OrderExecutor
	notifier   ports.Notifier
	stateStore ports.StateStore
	tradeRepo  ports.TradeRepository
	strategy   ports.Strategy
	sizer      *risk.Sizer
	retrier    *reliability.Retrier
	breaker    *reliability.CircuitBreaker
	stats      *reliability.ErrorStats
	metrics    *monitor.Metrics
	comparer   CandleComparer
	now        func() time.Time

	mu                 sync.Mutex
	state              *domain.BotState
	bufferedBars       int
	divergenceNotified bool
	haltNotified       bool
}

// Deps bundles the service dependencies.
type Deps struct {
	Logger     ports.Logger
	MarketData ports.MarketDataSource
	Account    ports.AccountSource
	Executor   ports.OrderExecutor
	Notifier   ports.Notifier
	StateStore ports.StateStore
	TradeRepo  ports.TradeRepository
	Strategy   ports.Strategy
	Sizer      *risk.Sizer
	Retrier    *reliability.Retrier
	Breaker    *reliability.CircuitBreaker
	Stats      *reliability.ErrorStats
	Metrics    *monitor.Metrics // optional
	Comparer   CandleComparer   // optional
}

// NewTradingService creates the service.
func NewTradingService(cfg Config, deps Deps) (*TradingService, error) {
	if deps.Logger == nil || deps.MarketData == nil || deps.Account == nil || deps.Executor == nil ||
		deps.StateStore == nil || deps.TradeRepo == nil || deps.Strategy == nil || deps.Sizer == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("configuration Symbol is required")
	}
	if cfg.FetchCount <= 0 {
		cfg.FetchCount = 100
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.Retrier == nil {
		deps.Retrier = reliability.NewRetrier(reliability.RetryConfig{}, deps.Logger)
	}
	if deps.Breaker == nil {
		deps.Breaker = reliability.NewCircuitBreaker(reliability.BreakerConfig{}, deps.Logger)
	}
	if deps.Stats == nil {
		deps.Stats = reliability.NewErrorStats()
	}

	return &TradingService{
		cfg:        cfg,
		logger:     deps.Logger,
		marketData: deps.MarketData,
		account:    deps.Account,
		executor:   deps.Executor,
		notifier:   deps.Notifier,
		stateStore: deps.StateStore,
		tradeRepo:  deps.TradeRepo,
		strategy:   deps.Strategy,
		sizer:      deps.Sizer,
		retrier:    deps.Retrier,
		breaker:    deps.Breaker,
		stats:      deps.Stats,
		metrics:    deps.Metrics,
		comparer:   deps.Comparer,
		now:        time.Now,
	}, nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, ports.Event) error { return nil }

// Init loads the persisted state. Must be called once before RunCycle.
func (s *TradingService) Init(ctx context.Context) error {
	state, err := s.stateStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading bot state: %w", err)
	}
	if state.Strategy.Progression.Required == 0 {
		state.Strategy.Progression.Required = s.cfg.RequiredLiveBars
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	fields := map[string]interface{}{
		"halted":      state.Halted,
		"progression": state.Strategy.Progression,
	}
	if state.Position != nil {
		fields["position"] = state.Position.Kind
		fields["entry_time"] = state.Position.EntryTime
		if state.Position.EntryRSI == nil {
			s.logger.Warn(ctx, "Recovered position has no entry RSI, threshold exits disabled for it", map[string]interface{}{
				"position": state.Position.Kind,
			})
		}
	}
	s.logger.Info(ctx, "Trading service initialized", fields)
	return nil
}

// RunCycle executes one full trading cycle: fetch, update, evaluate, act,
// persist. Called by the scheduler shortly after each bar boundary.
func (s *TradingService) RunCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trading cycle panicked: %v", r)
			s.logger.Error(ctx, err, "Cycle recovered from panic")
			s.countCycle("panic")
		}
	}()

	if s.halted() {
		s.notifyHaltOnce(ctx)
		s.countCycle("halted")
		return nil
	}

	bars, err := s.fetchBars(ctx)
	if err != nil {
		s.stats.RecordFailure(err)
		s.countCycle("fetch_error")
		s.observeReliability()
		if errors.Is(err, ports.ErrNoClosedBar) {
			s.logger.Warn(ctx, "No closed bar yet, waiting for the next boundary")
			return nil
		}
		return fmt.Errorf("fetching bars: %w", err)
	}

	added, err := s.strategy.UpdateMarketData(ctx, bars)
	if err != nil {
		s.stats.RecordFailure(err)
		s.countCycle("update_error")
		return fmt.Errorf("updating market data: %w", err)
	}
	s.mu.Lock()
	s.bufferedBars += added
	s.state.Strategy.Progression.RecordBars(added)
	s.mu.Unlock()

	if s.comparer != nil {
		s.comparer.Compare(ctx, bars)
	}

	if err := s.checkDivergence(ctx); err != nil {
		s.countCycle("divergence")
		return err
	}

	s.mu.Lock()
	pos := s.state.Position
	st := &s.state.Strategy
	s.mu.Unlock()

	decision, view, err := s.strategy.Evaluate(ctx, pos, st, s.now())
	if err != nil {
		s.countCycle("evaluate_error")
		return fmt.Errorf("evaluating strategy: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveView(view, s.buffered())
		s.metrics.ObserveDecision(decision, pos != nil)
	}

	switch decision.Action {
	case domain.ActionEnter:
		err = s.enterPosition(ctx, decision, view)
	case domain.ActionExit:
		err = s.exitPosition(ctx, decision, view)
	default:
		s.logger.Debug(ctx, "Holding", map[string]interface{}{"reason": decision.Reason})
	}
	if err != nil {
		s.stats.RecordFailure(err)
		s.countCycle("order_error")
		s.observeReliability()
		return err
	}

	// Evaluate may have flipped the VI1 phase memory even on a hold.
	if err := s.persist(ctx); err != nil {
		s.countCycle("persist_error")
		return err
	}

	s.stats.RecordSuccess()
	s.countCycle("ok")
	s.observeReliability()
	return nil
}

func (s *TradingService) fetchBars(ctx context.Context) ([]domain.Candle, error) {
	var bars []domain.Candle
	err := s.breaker.Do(ctx, "FetchClosedBars", func(ctx context.Context) error {
		return s.retrier.Do(ctx, "FetchClosedBars", func(ctx context.Context) error {
			var err error
			bars, err = s.marketData.FetchClosedBars(ctx, s.cfg.Symbol, s.cfg.FetchCount)
			return err
		})
	})
	return bars, err
}

// checkDivergence cross-checks local state against the exchange's open
// positions. Any mismatch halts trading until an operator intervenes.
func (s *TradingService) checkDivergence(ctx context.Context) error {
	var exchangePositions []ports.ExchangePosition
	err := s.breaker.Do(ctx, "GetOpenPositions", func(ctx context.Context) error {
		return s.retrier.Do(ctx, "GetOpenPositions", func(ctx context.Context) error {
			var err error
			exchangePositions, err = s.account.GetOpenPositions(ctx, s.cfg.Symbol)
			return err
		})
	})
	if err != nil {
		s.stats.RecordFailure(err)
		return fmt.Errorf("fetching open positions: %w", err)
	}

	s.mu.Lock()
	local := s.state.Position
	s.mu.Unlock()

	diverged := ""
	switch {
	case local == nil && len(exchangePositions) > 0:
		diverged = fmt.Sprintf("exchange reports %d open position(s) but local state is flat", len(exchangePositions))
	case local != nil && len(exchangePositions) == 0:
		diverged = fmt.Sprintf("local state holds a %s position but the exchange reports none", local.Kind)
	case local != nil && len(exchangePositions) > 0:
		if exchangePositions[0].Side != local.Kind.Side() {
			diverged = fmt.Sprintf("local %s position disagrees with exchange side %s", local.Kind, exchangePositions[0].Side)
		} else if !sizesMatch(exchangePositions[0].Size, local.Size) {
			diverged = fmt.Sprintf("local size %v disagrees with exchange size %v", local.Size, exchangePositions[0].Size)
		}
	}
	if diverged == "" {
		return nil
	}

	s.mu.Lock()
	s.state.Halted = true
	s.state.HaltReason = diverged
	alreadyNotified := s.divergenceNotified
	s.divergenceNotified = true
	s.haltNotified = true
	s.mu.Unlock()

	err = fmt.Errorf("%w: %s", ports.ErrStateDivergence, diverged)
	s.logger.Error(ctx, err, "Trading halted on state divergence")
	if persistErr := s.persist(ctx); persistErr != nil {
		s.logger.Error(ctx, persistErr, "Failed to persist halt state")
	}
	if !alreadyNotified {
		s.notify(ctx, ports.Event{
			Kind:    ports.EventHalt,
			Subject: "Trading halted: state divergence",
			Body:    diverged + "\n\nResolve the position manually and clear the halt flag in the state file.",
		})
	}
	return err
}

// sizesMatch tolerates the exchange's contract rounding.
func sizesMatch(a, b float64) bool {
	return math.Abs(a-b) < 0.00005
}

func (s *TradingService) enterPosition(ctx context.Context, decision domain.Decision, view domain.MarketView) error {
	op := "enterPosition"

	var margin float64
	err := s.retrier.Do(ctx, "GetAvailableMargin", func(ctx context.Context) error {
		var err error
		margin, err = s.account.GetAvailableMargin(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetching available margin: %w", err)
	}

	size, err := s.sizer.Size(ctx, margin, view.Close)
	if err != nil {
		if errors.Is(err, ports.ErrInsufficientFunds) {
			s.logger.Warn(ctx, op+": skipping entry, insufficient margin", map[string]interface{}{
				"margin": margin,
				"price":  view.Close,
			})
			return nil
		}
		return fmt.Errorf("sizing order: %w", err)
	}

	clientOrderID := uuid.NewString()
	s.logger.Info(ctx, op+": submitting entry order", map[string]interface{}{
		"kind":     decision.Kind,
		"side":     decision.Kind.Side(),
		"size":     size,
		"price":    view.Close,
		"cliOrdId": clientOrderID,
		"reason":   decision.Reason,
	})

	resp, err := s.executor.SubmitOrder(ctx, ports.OrderRequest{
		Symbol:        s.cfg.Symbol,
		Side:          decision.Kind.Side(),
		Size:          size,
		Type:          ports.OrderTypeMarket,
		ClientOrderID: clientOrderID,
	})
	if err != nil {
		s.logger.Error(ctx, err, op+": entry order failed")
		return fmt.Errorf("entry order failed: %w", err)
	}

	entryPrice := resp.Price
	if entryPrice == 0 {
		s.logger.Warn(ctx, op+": fill price missing, using bar close", map[string]interface{}{"orderID": resp.OrderID})
		entryPrice = view.Close
	}
	filledSize := resp.FilledSize
	if filledSize == 0 {
		filledSize = size
	}
	entryRSI := view.RSI

	s.mu.Lock()
	s.state.Position = &domain.Position{
		Kind:       decision.Kind,
		EntryPrice: entryPrice,
		EntryTime:  s.now(),
		Size:       filledSize,
		OrderID:    resp.OrderID,
		EntryRSI:   &entryRSI,
	}
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.OpenPosition.Set(1)
	}
	s.notify(ctx, ports.Event{
		Kind:    ports.EventEntry,
		Subject: fmt.Sprintf("Opened %s @ %.1f", decision.Kind, entryPrice),
		Body: fmt.Sprintf("Entered %s: size %v, entry RSI %.2f.\n%s",
			decision.Kind, filledSize, entryRSI, decision.Reason),
	})
	return nil
}

func (s *TradingService) exitPosition(ctx context.Context, decision domain.Decision, view domain.MarketView) error {
	op := "exitPosition"

	s.mu.Lock()
	pos := s.state.Position
	s.mu.Unlock()
	if pos == nil {
		return fmt.Errorf("exit decision with no open position")
	}

	clientOrderID := uuid.NewString()
	s.logger.Info(ctx, op+": submitting closing order", map[string]interface{}{
		"kind":     pos.Kind,
		"reason":   decision.ExitReason,
		"size":     pos.Size,
		"cliOrdId": clientOrderID,
		"detail":   decision.Reason,
	})

	resp, err := s.executor.SubmitOrder(ctx, ports.OrderRequest{
		Symbol:        s.cfg.Symbol,
		Side:          pos.Kind.CloseSide(),
		Size:          pos.Size,
		Type:          ports.OrderTypeMarket,
		ClientOrderID: clientOrderID,
		ReduceOnly:    true,
	})
	if err != nil {
		s.logger.Error(ctx, err, op+": closing order failed")
		return fmt.Errorf("closing order failed: %w", err)
	}

	exitPrice := resp.Price
	if exitPrice == 0 {
		exitPrice = view.Close
	}
	exitRSI := view.RSI
	now := s.now()

	trade := &domain.Trade{
		Symbol:     s.cfg.Symbol,
		Kind:       pos.Kind,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Size:       pos.Size,
		PNL:        pos.UnrealizedPNL(exitPrice),
		EntryRSI:   pos.EntryRSI,
		ExitRSI:    &exitRSI,
		EntryTime:  pos.EntryTime,
		ExitTime:   now,
		ExitReason: decision.ExitReason,
	}
	if _, err := s.tradeRepo.RecordTrade(ctx, trade); err != nil {
		// The position is closed on the exchange; a reporting failure
		// must not leave it open locally.
		s.logger.Error(ctx, err, op+": failed to record trade")
	}

	s.mu.Lock()
	s.state.Strategy.RecordExit(pos.Kind, now)
	s.state.Position = nil
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.OpenPosition.Set(0)
		s.metrics.ExitsTotal.WithLabelValues(string(decision.ExitReason)).Inc()
	}
	s.notify(ctx, ports.Event{
		Kind:    ports.EventExit,
		Subject: fmt.Sprintf("Closed %s @ %.1f (%s)", pos.Kind, exitPrice, decision.ExitReason),
		Body: fmt.Sprintf("Exit %s after %s: PNL %.2f, exit RSI %.2f.\n%s",
			pos.Kind, now.Sub(pos.EntryTime).Round(time.Minute), trade.PNL, exitRSI, decision.Reason),
	})
	return nil
}

// persist writes the state document; every mutation goes through here.
func (s *TradingService) persist(ctx context.Context) error {
	s.mu.Lock()
	state := *s.state
	s.mu.Unlock()
	if err := s.stateStore.Save(ctx, &state); err != nil {
		return fmt.Errorf("persisting state: %w", err)
	}
	return nil
}

// Shutdown flushes the state document on exit.
func (s *TradingService) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down, flushing state")
	return s.persist(ctx)
}

func (s *TradingService) halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Halted
}

func (s *TradingService) notifyHaltOnce(ctx context.Context) {
	s.mu.Lock()
	already := s.haltNotified
	s.haltNotified = true
	reason := s.state.HaltReason
	s.mu.Unlock()
	if already {
		return
	}
	s.logger.Warn(ctx, "Trading is halted, cycles are no-ops", map[string]interface{}{"reason": reason})
	s.notify(ctx, ports.Event{
		Kind:    ports.EventHalt,
		Subject: "Bot restarted while halted",
		Body:    "Trading remains halted: " + reason,
	})
}

func (s *TradingService) notify(ctx context.Context, event ports.Event) {
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn(ctx, "Notification delivery failed", map[string]interface{}{
			"kind":  event.Kind,
			"error": err.Error(),
		})
	}
}

func (s *TradingService) countCycle(result string) {
	if s.metrics != nil {
		s.metrics.CyclesTotal.WithLabelValues(result).Inc()
	}
}

func (s *TradingService) observeReliability() {
	if s.metrics == nil {
		return
	}
	snap := s.stats.Snapshot()
	s.metrics.ConsecutiveError.Set(float64(snap.ConsecutiveFailures))
	s.metrics.CircuitState.Set(float64(s.breaker.State()))
	if !snap.LastSuccess.IsZero() {
		s.metrics.LastSuccessAge.Set(s.now().Sub(snap.LastSuccess).Seconds())
	}
}

func (s *TradingService) buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bufferedBars
}

// Health implements monitor.HealthSource.
func (s *TradingService) Health() monitor.Health {
	// The cycle goroutine mutates Halted and Position under the mutex, so
	// both reads must happen before unlocking.
	s.mu.Lock()
	buffered := s.bufferedBars
	var halted, hasPosition bool
	if s.state != nil {
		halted = s.state.Halted
		hasPosition = s.state.Position != nil
	}
	s.mu.Unlock()

	snap := s.stats.Snapshot()
	health := monitor.Health{
		Status:              "ok",
		Halted:              halted,
		HasPosition:         hasPosition,
		BufferedBars:        buffered,
		ConsecutiveFailures: snap.ConsecutiveFailures,
		LastSuccess:         snap.LastSuccess,
		LastError:           snap.LastError,
	}
	if health.Halted || snap.ConsecutiveFailures >= 5 {
		health.Status = "degraded"
	}
	return health
}
