package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	EventJobAdded         EventType = "job_added"
	EventJobUpdated       EventType = "job_updated"
	EventJobRemoved       EventType = "job_removed"
	EventJobProgress      EventType = "job_progress"
	EventNotification     EventType = "notification"
	EventConnectionStatus EventType = "connection_status"
	EventStatsUpdated     EventType = "stats_updated"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus. The UI layer subscribes here
// for read-only observation of the tracked set; it never mutates state.
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error
}
