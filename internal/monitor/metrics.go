// Package monitor exposes operational metrics and a health endpoint.
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// Metrics holds every Prometheus collector the bot publishes.
type Metrics struct {
	CyclesTotal    *prometheus.CounterVec
	DecisionsTotal *prometheus.CounterVec
	ExitsTotal     *prometheus.CounterVec

	OpenPosition     prometheus.Gauge
	RSI              prometheus.Gauge
	LegacyRSI        prometheus.Gauge
	ATR              prometheus.Gauge
	BufferedBars     prometheus.Gauge
	ConsecutiveError prometheus.Gauge
	CircuitState     prometheus.Gauge
	LastSuccessAge   prometheus.Gauge
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_cycles_total",
			Help: "Trading cycles by outcome.",
		}, []string{"result"}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_decisions_total",
			Help: "Decisions by action.",
		}, []string{"action"}),
		ExitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_exits_total",
			Help: "Position exits by reason.",
		}, []string{"reason"}),
		OpenPosition: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_open_position",
			Help: "1 while a position is open, 0 while flat.",
		}),
		RSI: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_rsi",
			Help: "Decision-path RSI at the last evaluated bar.",
		}),
		LegacyRSI: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_rsi_legacy",
			Help: "Reporting RSI at the last evaluated bar.",
		}),
		ATR: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_atr",
			Help: "ATR at the last evaluated bar.",
		}),
		BufferedBars: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_buffered_bars",
			Help: "Closed bars currently held in the candle buffer.",
		}),
		ConsecutiveError: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_consecutive_errors",
			Help: "Unbroken streak of failed exchange calls.",
		}),
		CircuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_circuit_state",
			Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}),
		LastSuccessAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_last_success_age_seconds",
			Help: "Seconds since the last successful cycle.",
		}),
	}
	reg.MustRegister(
		m.CyclesTotal, m.DecisionsTotal, m.ExitsTotal,
		m.OpenPosition, m.RSI, m.LegacyRSI, m.ATR, m.BufferedBars,
		m.ConsecutiveError, m.CircuitState, m.LastSuccessAge,
	)
	return m
}

// ObserveView publishes the indicator snapshot a cycle acted on.
func (m *Metrics) ObserveView(view domain.MarketView, bufferedBars int) {
	if view.RSIReady {
		m.RSI.Set(view.RSI)
		m.LegacyRSI.Set(view.LegacyRSI)
	}
	if view.ATRReady {
		m.ATR.Set(view.ATR)
	}
	m.BufferedBars.Set(float64(bufferedBars))
}

// ObserveDecision counts a decision and tracks the position gauge.
func (m *Metrics) ObserveDecision(decision domain.Decision, hasPosition bool) {
	m.DecisionsTotal.WithLabelValues(string(decision.Action)).Inc()
	if hasPosition {
		m.OpenPosition.Set(1)
	} else {
		m.OpenPosition.Set(0)
	}
}
