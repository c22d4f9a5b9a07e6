package domain

// EventKind labels operator notifications.
type EventKind string

const (
	EventPositionOpened EventKind = "POSITION_OPENED"
	EventPositionClosed EventKind = "POSITION_CLOSED"
	EventOrderFailed    EventKind = "ORDER_FAILED"
	EventCycleError     EventKind = "CYCLE_ERROR"
	EventBotStatus      EventKind = "BOT_STATUS"
)

// Notifier delivers alerts to the operator. Fire-and-forget: delivery failures
// must never abort a trading cycle.
type Notifier interface {
	Notify(kind EventKind, title, body string, data map[string]string)
}
