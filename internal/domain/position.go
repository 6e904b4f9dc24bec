package domain

import "time"

// Position represents the single position the bot may hold. A nil *Position
// means flat. Exactly zero or one position is open at any time.
type Position struct {
	Kind       PositionKind `json:"type"`
	EntryPrice float64      `json:"entry_price"`
	EntryTime  time.Time    `json:"entry_time"`
	Size       float64      `json:"size"`
	OrderID    string       `json:"order_id,omitempty"`

	// EntryRSI is the decision-path RSI at entry. It is nil when a position
	// was recovered from partial state; RSI-threshold exits are then
	// disabled while the last-resort exit remains available.
	EntryRSI *float64 `json:"entry_rsi,omitempty"`
}

// Age returns the elapsed time since entry.
func (p *Position) Age(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}

// PriceChangePct returns the signed percentage move from entry to price.
func (p *Position) PriceChangePct(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

// UnrealizedPNL returns the position PnL in quote currency at the given
// mark price, positive when the trade is in profit.
func (p *Position) UnrealizedPNL(price float64) float64 {
	diff := price - p.EntryPrice
	if !p.Kind.IsLong() {
		diff = -diff
	}
	return diff * p.Size
}
