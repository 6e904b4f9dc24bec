package domain

import (
	"sort"
	"time"
)

// Candle represents a single closed 15-minute OHLCV bar.
type Candle struct {
	OpenTime   time.Time `json:"open_time"`   // Start of the interval, unique key within a buffer
	Open       float64   `json:"open"`        // Opening price
	High       float64   `json:"high"`        // Highest price
	Low        float64   `json:"low"`         // Lowest price
	Close      float64   `json:"close"`       // Closing price
	Volume     float64   `json:"volume"`      // Traded volume over the interval
	TradeCount int       `json:"trade_count"` // Number of trades in the interval
}

// IsClosed reports whether the bar can be used for decisions.
// Bars with zero volume are either still forming or empty exchange
// placeholders and are never fed to the indicator pipeline.
func (c Candle) IsClosed() bool {
	return c.Volume > 0
}

// TimestampMS returns the bar open time as integer milliseconds since epoch,
// the form used for deduplication and wire exchange.
func (c Candle) TimestampMS() int64 {
	return c.OpenTime.UnixMilli()
}

// SortCandles orders bars by open time ascending, in place.
func SortCandles(candles []Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})
}
