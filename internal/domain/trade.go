package domain

import "time"

// Trade represents a completed round trip, recorded once the closing order
// succeeds.
type Trade struct {
	ID         int64        // Unique identifier for the trade (from DB)
	Symbol     string       // Instrument symbol (e.g. "PI_XBTUSD")
	Kind       PositionKind // Entry strategy that opened the position
	EntryPrice float64      // Price at which the position was entered
	ExitPrice  float64      // Price at which the position was exited
	Size       float64      // Position size in contracts
	PNL        float64      // Profit and loss in quote currency
	EntryRSI   *float64     // Decision RSI at entry, nil when unknown
	ExitRSI    *float64     // Decision RSI at exit, nil when unknown
	EntryTime  time.Time    // Timestamp when the position was entered
	ExitTime   time.Time    // Timestamp when the position was exited
	ExitReason ExitReason   // Why the position was closed
}

// Win reports whether the trade closed in profit.
func (t *Trade) Win() bool {
	return t.PNL > 0
}
