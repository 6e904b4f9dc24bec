package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Phase classifies a volatility band relative to the closing price:
// BULLISH when the band level sits below the close, BEARISH when above.
type Phase string

const (
	PhaseBullish Phase = "BULLISH"
	PhaseBearish Phase = "BEARISH"
)

// Opposite returns the other phase.
func (p Phase) Opposite() Phase {
	if p == PhaseBullish {
		return PhaseBearish
	}
	return PhaseBullish
}

// CrossingDirection describes how a band level traversed the close on the
// bar that flipped its phase: UP means the level moved above the close
// (bearish flip), DOWN means it moved below (bullish flip).
type CrossingDirection string

const (
	CrossingUp   CrossingDirection = "UP"
	CrossingDown CrossingDirection = "DOWN"
	CrossingNone CrossingDirection = "NONE"
)

// PositionKind identifies which entry strategy opened a position.
type PositionKind string

const (
	KindShort       PositionKind = "SHORT"
	KindLongVI1     PositionKind = "LONG_VI1"
	KindLongVI2     PositionKind = "LONG_VI2"
	KindLongReentry PositionKind = "LONG_REENTRY"
)

// IsLong reports whether the kind opens in the long direction.
func (k PositionKind) IsLong() bool {
	return k != KindShort
}

// Side returns the order side that opens a position of this kind.
func (k PositionKind) Side() OrderSide {
	if k.IsLong() {
		return Buy
	}
	return Sell
}

// CloseSide returns the order side that closes a position of this kind.
func (k PositionKind) CloseSide() OrderSide {
	if k.IsLong() {
		return Sell
	}
	return Buy
}

// Valid reports whether k is one of the four known kinds.
func (k PositionKind) Valid() bool {
	switch k {
	case KindShort, KindLongVI1, KindLongVI2, KindLongReentry:
		return true
	}
	return false
}

// ExitReason tags why a position was closed.
type ExitReason string

const (
	ExitReasonControl3h  ExitReason = "control_3h"
	ExitReasonEmergency  ExitReason = "emergency"
	ExitReasonTarget     ExitReason = "target"
	ExitReasonLastResort ExitReason = "last_resort"
	ExitReasonManual     ExitReason = "manual"
)
