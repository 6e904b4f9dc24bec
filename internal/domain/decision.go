package domain

import "time"

// BandView is the decision-facing view of one volatility band after the
// latest bar: its level, phase, and whether that bar flipped the phase.
type BandView struct {
	Level     float64           `json:"level"`
	Phase     Phase             `json:"phase"`
	Crossed   bool              `json:"crossed"`
	Direction CrossingDirection `json:"direction"`
}

// MarketView is the indicator output for the most recent closed bar,
// handed to the decision engine. Every field the gates read is explicit;
// missing data shows up as Ready flags, not absent keys.
type MarketView struct {
	BarTime    time.Time `json:"bar_time"`
	Close      float64   `json:"close"`
	PrevClose  float64   `json:"prev_close"`
	Volume     float64   `json:"volume"`
	PrevVolume float64   `json:"prev_volume"`

	RSI      float64 `json:"rsi"`
	RSIReady bool    `json:"rsi_ready"`
	PrevRSI  float64 `json:"prev_rsi"`

	// LegacyRSI is the SMA-smoothed formulation kept for reporting.
	// Decisions read RSI only.
	LegacyRSI float64 `json:"legacy_rsi"`

	ATR      float64 `json:"atr"`
	ATRReady bool    `json:"atr_ready"`

	VI1 BandView `json:"vi1"`
	VI2 BandView `json:"vi2"`
	VI3 BandView `json:"vi3"`
}

// Action is the outcome class of one decision cycle.
type Action string

const (
	ActionHold  Action = "hold"
	ActionEnter Action = "enter"
	ActionExit  Action = "exit"
)

// Decision is the tagged result of evaluating one bar.
type Decision struct {
	Action Action `json:"action"`

	// Kind is the strategy to enter, or the kind of the position being
	// exited. Unset on hold.
	Kind PositionKind `json:"kind,omitempty"`

	// ExitReason is set only when Action is ActionExit.
	ExitReason ExitReason `json:"exit_reason,omitempty"`

	// Reason is a short human-readable explanation for logs and
	// notifications.
	Reason string `json:"reason"`
}

// Hold builds a hold decision with the given reason.
func Hold(reason string) Decision {
	return Decision{Action: ActionHold, Reason: reason}
}

// BotState is the single durable document the state store persists: the
// open position (nil when flat), the strategy memory, and the trading
// halt latch.
type BotState struct {
	Version    int           `json:"version"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Position   *Position     `json:"position,omitempty"`
	Strategy   StrategyState `json:"strategy_state"`
	Halted     bool          `json:"halted"`
	HaltReason string        `json:"halt_reason,omitempty"`
}
