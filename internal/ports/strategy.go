package ports

import (
	"context"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// Strategy is the per-bar pipeline behind the trading service: it owns the
// candle history and incremental indicator state, and evaluates the
// entry/exit rules.
type Strategy interface {
	// RequiredBars is the minimum number of closed bars before Evaluate
	// can produce anything other than an insufficient-history hold.
	RequiredBars() int

	// UpdateMarketData merges freshly fetched bars into the buffer and
	// advances the indicator state. Returns how many bars were newly
	// accepted (duplicates excluded). A failed update leaves the
	// indicator state untouched.
	UpdateMarketData(ctx context.Context, bars []domain.Candle) (int, error)

	// Evaluate runs the decision rules for the most recent closed bar.
	// The returned view reports the indicator values the decision saw.
	Evaluate(ctx context.Context, pos *domain.Position, st *domain.StrategyState, now time.Time) (domain.Decision, domain.MarketView, error)
}
