// Package reliability wraps exchange calls with retry, circuit breaking,
// and rolling error accounting.
package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

// RetryConfig tunes the retrier.
type RetryConfig struct {
	MaxAttempts    int           // total attempts including the first
	MinBackoff     time.Duration // first retry delay
	MaxBackoff     time.Duration // backoff ceiling
	AttemptTimeout time.Duration // per-attempt deadline, 0 disables
}

// Retrier retries retryable failures with jittered exponential backoff.
// Non-retryable errors are returned immediately.
type Retrier struct {
	cfg    RetryConfig
	logger ports.Logger
}

// NewRetrier creates a retrier. Defaults: 3 attempts, 1s..60s backoff,
// factor 2 with jitter, 15s per attempt.
func NewRetrier(cfg RetryConfig, logger ports.Logger) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Minute
	}
	if cfg.AttemptTimeout < 0 {
		cfg.AttemptTimeout = 0
	} else if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Retrier{cfg: cfg, logger: logger}
}

// Do runs op, retrying while ports.IsRetryable holds and attempts remain.
func (r *Retrier) Do(ctx context.Context, name string, op func(context.Context) error) error {
	b := &backoff.Backoff{
		Min:    r.cfg.MinBackoff,
		Max:    r.cfg.MaxBackoff,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		attemptCtx := ctx
		cancel := func() {}
		if r.cfg.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.cfg.AttemptTimeout)
		}
		err := op(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if !ports.IsRetryable(err) {
			return err
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		delay := b.Duration()
		r.logger.Warn(ctx, "Retryable failure, backing off", map[string]interface{}{
			"operation": name,
			"attempt":   attempt,
			"delay":     delay.String(),
			"error":     err.Error(),
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, r.cfg.MaxAttempts, lastErr)
}
