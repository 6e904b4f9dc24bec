package indicators

// LegacyRSIConfig holds configuration for the reporting-path RSI.
type LegacyRSIConfig struct {
	IndicatorConfig
}

// LegacyRSI is the simple-moving-average RSI formulation carried for the
// reporting path only: gains and losses are averaged over a plain window
// of the last `period` price changes, with no Wilder smoothing. It must
// never feed the decision engine.
type LegacyRSI struct {
	period int
	deltas []float64
	count  int
	prev   float64
	value  float64
}

// NewLegacyRSI creates the reporting RSI. Period defaults to
// DefaultLegacyRSIPeriod.
func NewLegacyRSI(config LegacyRSIConfig) LegacyRSI {
	period := config.Period
	if period <= 0 {
		period = DefaultLegacyRSIPeriod
	}
	return LegacyRSI{period: period, deltas: make([]float64, 0, period)}
}

// Update feeds the next closing price.
func (l *LegacyRSI) Update(close float64) {
	l.count++
	if l.count == 1 {
		l.prev = close
		return
	}

	delta := close - l.prev
	l.prev = close
	if len(l.deltas) == l.period {
		copy(l.deltas, l.deltas[1:])
		l.deltas[l.period-1] = delta
	} else {
		l.deltas = append(l.deltas, delta)
	}
	if len(l.deltas) < l.period {
		return
	}

	var gain, loss float64
	for _, d := range l.deltas {
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	l.value = rsiFromAverages(gain/float64(l.period), loss/float64(l.period))
}

// Ready reports whether a full window has been seen.
func (l *LegacyRSI) Ready() bool {
	return l.count >= l.period+1
}

// Value returns the current reporting RSI. Meaningless before Ready.
func (l *LegacyRSI) Value() float64 {
	return l.value
}

// clone returns a deep copy (the delta window is shared state otherwise).
func (l *LegacyRSI) clone() LegacyRSI {
	out := *l
	out.deltas = make([]float64, len(l.deltas), l.period)
	copy(out.deltas, l.deltas)
	return out
}
