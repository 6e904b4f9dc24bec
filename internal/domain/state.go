package domain

import "time"

// DataProgression tracks the transition from seed history to live data.
// Decisions are allowed only once enough live bars have been ingested on
// top of the operator-supplied seed.
type DataProgression struct {
	BarsIngested       int  `json:"bars_ingested"`
	Required           int  `json:"required"`
	TransitionComplete bool `json:"transition_complete"`
}

// RecordBars counts freshly accepted live bars and latches completion.
func (d *DataProgression) RecordBars(n int) {
	if n <= 0 {
		return
	}
	d.BarsIngested += n
	if d.Required > 0 && d.BarsIngested >= d.Required {
		d.TransitionComplete = true
	}
}

// StrategyState is the durable strategy memory that survives restarts.
// It is owned by the decision engine and persisted by the state store
// after every mutation.
type StrategyState struct {
	// LastPositionKind is the kind of the most recently closed position,
	// nil before the first trade. Drives the re-entry blocking rules.
	LastPositionKind *PositionKind `json:"last_position_type,omitempty"`

	// VI1Phase mirrors the tight band phase, with the time it last flipped.
	// Entries against a phase younger than the protection window are blocked.
	VI1Phase          Phase     `json:"vi1_phase"`
	VI1PhaseChangedAt time.Time `json:"vi1_phase_timestamp"`

	LastExitTime *time.Time      `json:"last_position_exit_time,omitempty"`
	Progression  DataProgression `json:"data_progression"`
}

// RecordPhase updates the tracked VI1 phase, stamping the change time only
// when the phase actually flips. The first phase seen after a fresh state
// is recorded without a timestamp: it is an observation, not a flip, and
// must not arm the counter-phase protection window.
func (s *StrategyState) RecordPhase(phase Phase, at time.Time) {
	if s.VI1Phase == phase {
		return
	}
	first := s.VI1Phase == ""
	s.VI1Phase = phase
	if !first {
		s.VI1PhaseChangedAt = at
	}
}

// RecordExit notes a closed position for the blocking rules.
func (s *StrategyState) RecordExit(kind PositionKind, at time.Time) {
	k := kind
	s.LastPositionKind = &k
	t := at
	s.LastExitTime = &t
}
