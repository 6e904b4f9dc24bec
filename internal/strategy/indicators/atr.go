package indicators

import (
	"math"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// ATRConfig holds configuration for the Average True Range indicator.
type ATRConfig struct {
	IndicatorConfig
}

// ATR is the incremental Wilder Average True Range. True ranges start on
// the second bar (the first has no previous close); the first ATR is the
// simple mean of the first `period` true ranges, then Wilder smoothing
// takes over. Ready after period+1 bars.
type ATR struct {
	period    int
	barCount  int
	trCount   int
	prevClose float64
	sumTR     float64
	value     float64
}

// NewATR creates an ATR indicator. Period defaults to DefaultATRPeriod.
func NewATR(config ATRConfig) ATR {
	period := config.Period
	if period <= 0 {
		period = DefaultATRPeriod
	}
	return ATR{period: period}
}

// Update feeds the next bar.
func (a *ATR) Update(c domain.Candle) {
	a.barCount++
	if a.barCount == 1 {
		a.prevClose = c.Close
		return
	}

	tr := trueRange(c.High, c.Low, a.prevClose)
	a.prevClose = c.Close
	a.trCount++

	if a.trCount <= a.period {
		a.sumTR += tr
		if a.trCount == a.period {
			a.value = a.sumTR / float64(a.period)
		}
		return
	}

	p := float64(a.period)
	a.value = (a.value*(p-1) + tr) / p
}

// Ready reports whether at least period+1 bars have been seen.
func (a *ATR) Ready() bool {
	return a.barCount >= a.period+1
}

// Value returns the current ATR. Meaningless before Ready.
func (a *ATR) Value() float64 {
	return a.value
}

// Period returns the configured period.
func (a *ATR) Period() int {
	return a.period
}

func trueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if v := math.Abs(high - prevClose); v > tr {
		tr = v
	}
	if v := math.Abs(low - prevClose); v > tr {
		tr = v
	}
	return tr
}
