package ports

import "context"

// EventKind classifies outbound notifications.
type EventKind string

const (
	EventEntry   EventKind = "entry"
	EventExit    EventKind = "exit"
	EventError   EventKind = "error"
	EventHalt    EventKind = "halt"
	EventAlert   EventKind = "alert"
	EventSummary EventKind = "summary"
)

// Event is one notification payload.
type Event struct {
	Kind    EventKind
	Subject string
	Body    string
}

// Notifier delivers events to the operator. Delivery is best-effort:
// failures are logged by the caller and must never block trading.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
