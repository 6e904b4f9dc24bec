package reliability

import (
	"context"
	"sync"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures that open the circuit
	OpenDuration     time.Duration // how long the circuit stays open before probing
}

// BreakerState is the current circuit state.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker fails fast once the exchange has failed repeatedly: while
// open, calls return ports.ErrCircuitOpen without touching the network.
// After OpenDuration one probe call is let through; success closes the
// circuit, failure re-opens it.
type CircuitBreaker struct {
	cfg    BreakerConfig
	logger ports.Logger
	now    func() time.Time

	mu            sync.Mutex
	state         BreakerState
	failures      int
	openedAt      time.Time
	probeInFlight bool
}

// NewCircuitBreaker creates a breaker. Defaults: 5 failures, 60s open.
func NewCircuitBreaker(cfg BreakerConfig, logger ports.Logger) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenDuration <= 0 {
		cfg.OpenDuration = time.Minute
	}
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &CircuitBreaker{cfg: cfg, logger: logger, now: time.Now}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Do runs op through the breaker.
func (cb *CircuitBreaker) Do(ctx context.Context, name string, op func(context.Context) error) error {
	if err := cb.allow(ctx, name); err != nil {
		return err
	}
	err := op(ctx)
	cb.record(ctx, name, err)
	return err
}

func (cb *CircuitBreaker) allow(ctx context.Context, name string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.currentState() {
	case BreakerOpen:
		return ports.ErrCircuitOpen
	case BreakerHalfOpen:
		if cb.probeInFlight {
			return ports.ErrCircuitOpen
		}
		cb.probeInFlight = true
		cb.logger.Info(ctx, "Circuit half-open, probing", map[string]interface{}{"operation": name})
	}
	return nil
}

func (cb *CircuitBreaker) record(ctx context.Context, name string, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probeInFlight = false

	if err == nil {
		if cb.state != BreakerClosed {
			cb.logger.Info(ctx, "Circuit closed", map[string]interface{}{"operation": name})
		}
		cb.state = BreakerClosed
		cb.failures = 0
		return
	}

	cb.failures++
	if cb.currentState() == BreakerHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
		cb.state = BreakerOpen
		cb.openedAt = cb.now()
		cb.logger.Warn(ctx, "Circuit opened", map[string]interface{}{
			"operation":            name,
			"consecutive_failures": cb.failures,
			"open_for":             cb.cfg.OpenDuration.String(),
		})
	}
}

// currentState resolves open->half-open once the open window has elapsed.
// Callers hold cb.mu.
func (cb *CircuitBreaker) currentState() BreakerState {
	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.OpenDuration {
		cb.state = BreakerHalfOpen
	}
	return cb.state
}
