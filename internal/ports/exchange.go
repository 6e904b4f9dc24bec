package ports

import (
	"context"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// MarketDataSource supplies closed bars for one instrument.
type MarketDataSource interface {
	// FetchClosedBars returns up to count closed bars ordered by open time
	// ascending, the in-progress candle excluded. Fails with ErrNetwork
	// (retryable) or ErrNoClosedBar (wait for the next tick).
	FetchClosedBars(ctx context.Context, symbol string, count int) ([]domain.Candle, error)
}

// ExchangePosition is the exchange-reported view of an open position,
// used only to cross-check local state against exchange truth.
type ExchangePosition struct {
	Symbol        string
	Side          domain.OrderSide
	Size          float64
	Price         float64
	UnrealizedPnL float64
}

// AccountSource exposes the account data the bot needs: open positions for
// divergence checks and the margin available for sizing.
type AccountSource interface {
	GetOpenPositions(ctx context.Context, symbol string) ([]ExchangePosition, error)
	GetAvailableMargin(ctx context.Context) (float64, error)
}

// OrderType is the execution style of a submitted order.
type OrderType string

const (
	OrderTypeMarket OrderType = "mkt"
	OrderTypeIOC    OrderType = "ioc"
)

// OrderRequest describes one order submission.
type OrderRequest struct {
	Symbol        string
	Side          domain.OrderSide
	Size          float64
	Type          OrderType
	ClientOrderID string
	ReduceOnly    bool
}

// OrderResponse carries the essential fill details after submission.
type OrderResponse struct {
	OrderID       string
	ClientOrderID string
	FilledSize    float64
	Price         float64
	Status        string
	Timestamp     time.Time
}

// OrderExecutor submits orders. Failures map onto ErrExecutionFailure or a
// retryable network sentinel.
type OrderExecutor interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error)
}
