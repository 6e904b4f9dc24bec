package reliability

import (
	"sync"
	"time"
)

// statsWindow is how many recent outcomes the ring keeps.
const statsWindow = 100

// ErrorStats keeps a rolling window of call outcomes for health reporting.
// Safe for concurrent use.
type ErrorStats struct {
	mu          sync.Mutex
	outcomes    [statsWindow]bool
	count       int
	next        int
	consecutive int
	lastSuccess time.Time
	lastError   string
	lastErrorAt time.Time
	now         func() time.Time
}

// NewErrorStats creates an empty stats window.
func NewErrorStats() *ErrorStats {
	return &ErrorStats{now: time.Now}
}

// RecordSuccess notes a successful call.
func (s *ErrorStats) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.push(true)
	s.consecutive = 0
	s.lastSuccess = s.now()
}

// RecordFailure notes a failed call.
func (s *ErrorStats) RecordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.push(false)
	s.consecutive++
	if err != nil {
		s.lastError = err.Error()
	}
	s.lastErrorAt = s.now()
}

func (s *ErrorStats) push(ok bool) {
	s.outcomes[s.next] = ok
	s.next = (s.next + 1) % statsWindow
	if s.count < statsWindow {
		s.count++
	}
}

// Snapshot is a point-in-time view of the window.
type Snapshot struct {
	WindowSize          int
	Failures            int
	FailureRate         float64
	ConsecutiveFailures int
	LastSuccess         time.Time
	LastError           string
	LastErrorAt         time.Time
}

// Snapshot returns the current counters.
func (s *ErrorStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	failures := 0
	for i := 0; i < s.count; i++ {
		if !s.outcomes[i] {
			failures++
		}
	}
	snap := Snapshot{
		WindowSize:          s.count,
		Failures:            failures,
		ConsecutiveFailures: s.consecutive,
		LastSuccess:         s.lastSuccess,
		LastError:           s.lastError,
		LastErrorAt:         s.lastErrorAt,
	}
	if s.count > 0 {
		snap.FailureRate = float64(failures) / float64(s.count)
	}
	return snap
}

// ConsecutiveFailures returns the current unbroken failure streak.
func (s *ErrorStats) ConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutive
}
