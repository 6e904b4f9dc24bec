package indicators

// RSIConfig holds configuration for the Wilder RSI indicator.
type RSIConfig struct {
	IndicatorConfig
}

// RSI is the incremental Relative Strength Index using Wilder's running
// moving average. This is the decision-path formulation: the first averages
// are simple means over the first `period` price changes, every later bar
// applies avg = (prev*(period-1) + sample) / period.
type RSI struct {
	period    int
	count     int
	prevClose float64
	sumGain   float64
	sumLoss   float64
	avgGain   float64
	avgLoss   float64
	value     float64
}

// NewRSI creates an RSI indicator. Period defaults to DefaultRSIPeriod.
func NewRSI(config RSIConfig) RSI {
	period := config.Period
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	return RSI{period: period}
}

// Update feeds the next closing price.
func (r *RSI) Update(close float64) {
	r.count++
	if r.count == 1 {
		r.prevClose = close
		return
	}

	delta := close - r.prevClose
	r.prevClose = close
	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.count <= r.period+1 {
		r.sumGain += gain
		r.sumLoss += loss
		if r.count == r.period+1 {
			r.avgGain = r.sumGain / float64(r.period)
			r.avgLoss = r.sumLoss / float64(r.period)
			r.value = rsiFromAverages(r.avgGain, r.avgLoss)
		}
		return
	}

	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.value = rsiFromAverages(r.avgGain, r.avgLoss)
}

// Ready reports whether at least period+1 closes have been seen.
func (r *RSI) Ready() bool {
	return r.count >= r.period+1
}

// Value returns the current RSI. Meaningless before Ready.
func (r *RSI) Value() float64 {
	return r.value
}

// Period returns the configured period.
func (r *RSI) Period() int {
	return r.period
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
