// Package scheduler drives the trading cycle on 15-minute bar boundaries.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

// Config holds scheduler tuning.
type Config struct {
	// Interval is the bar interval the boundaries align to.
	Interval time.Duration
	// BoundarySlack is added after each boundary so the exchange has the
	// just-closed bar available when the cycle fetches.
	BoundarySlack time.Duration
	// DebounceWindow suppresses a second firing within this window of the
	// previous one (clock adjustments, spurious wakeups).
	DebounceWindow time.Duration
}

// Scheduler fires a cycle function shortly after every bar boundary. If a
// cycle is still running when the next boundary arrives, that boundary is
// skipped rather than queued; the cycle for bar N+1 always sees the state
// left by bar N.
type Scheduler struct {
	cfg    Config
	logger ports.Logger
	now    func() time.Time

	mu       sync.Mutex
	running  bool
	lastFire time.Time
}

// New creates a scheduler. Interval defaults to 15 minutes, slack to 2s,
// debounce to 60s.
func New(cfg Config, logger ports.Logger) (*Scheduler, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.BoundarySlack <= 0 {
		cfg.BoundarySlack = 2 * time.Second
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = time.Minute
	}
	return &Scheduler{cfg: cfg, logger: logger, now: time.Now}, nil
}

// NextFire returns the next wall-clock instant the scheduler should fire
// at or after now: the next interval boundary plus the slack.
func (s *Scheduler) NextFire(now time.Time) time.Time {
	boundary := now.Truncate(s.cfg.Interval)
	if !boundary.Add(s.cfg.BoundarySlack).After(now) {
		boundary = boundary.Add(s.cfg.Interval)
	}
	return boundary.Add(s.cfg.BoundarySlack)
}

// Run fires cycle after every boundary until ctx is cancelled. Errors from
// the cycle are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context, cycle func(context.Context) error) error {
	for {
		now := s.now()
		next := s.NextFire(now)
		timer := time.NewTimer(next.Sub(now))
		s.logger.Debug(ctx, "Waiting for next bar boundary", map[string]interface{}{"next_fire": next})

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if !s.tryFire() {
			continue
		}
		func() {
			defer s.done()
			if err := cycle(ctx); err != nil {
				s.logger.Error(ctx, err, "Trading cycle failed")
			}
		}()
	}
}

// tryFire claims the firing slot, applying both the skip-if-running and
// debounce rules.
func (s *Scheduler) tryFire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.running {
		s.logger.Warn(context.Background(), "Previous cycle still running, skipping boundary", map[string]interface{}{"at": now})
		return false
	}
	if !s.lastFire.IsZero() && now.Sub(s.lastFire) < s.cfg.DebounceWindow {
		s.logger.Warn(context.Background(), "Boundary fired inside debounce window, skipping", map[string]interface{}{
			"at":        now,
			"last_fire": s.lastFire,
		})
		return false
	}
	s.running = true
	s.lastFire = now
	return true
}

func (s *Scheduler) done() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
