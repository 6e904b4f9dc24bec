// Package indicators implements the incremental per-bar indicator engine:
// Wilder RSI, Wilder ATR, and the three volatility bands. Each indicator is
// a value type updated once per closed bar, so the whole engine state can be
// copied, advanced, and committed only when a cycle completes.
package indicators

// IndicatorConfig holds common configuration for indicators.
type IndicatorConfig struct {
	Period int
}

const (
	// DefaultRSIPeriod is the decision-path RSI period.
	DefaultRSIPeriod = 40
	// DefaultLegacyRSIPeriod is the reporting-only SMA RSI period.
	DefaultLegacyRSIPeriod = 12
	// DefaultATRPeriod is the Wilder ATR period.
	DefaultATRPeriod = 28
)
