package ports

import (
	"context"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// TradeStats summarizes the recorded trade history.
type TradeStats struct {
	Total    int
	Wins     int
	Losses   int
	TotalPNL float64
}

// TradeRepository stores completed round trips for reporting and analytics.
type TradeRepository interface {
	// RecordTrade saves a closed trade and returns its assigned ID.
	RecordTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// FindBySymbol retrieves the most recent trades for a symbol, newest
	// first, up to limit (0 means no limit).
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error)
	// Stats aggregates the recorded history for a symbol.
	Stats(ctx context.Context, symbol string) (TradeStats, error)
}
