package notify

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobsync/internal/interfaces"
)

// EventBusNotifier publishes notifications on the event bus so UI subscribers
// receive them without observing engine internals.
type EventBusNotifier struct {
	events interfaces.EventService
}

// NewEventBusNotifier creates a notifier that publishes to the event bus.
func NewEventBusNotifier(events interfaces.EventService) *EventBusNotifier {
	return &EventBusNotifier{events: events}
}

// Notify publishes the notification as an event.
func (n *EventBusNotifier) Notify(notification interfaces.Notification) {
	_ = n.events.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventNotification,
		Payload: notification,
	})
}

// MultiNotifier fans one notification out to several sinks in order.
type MultiNotifier struct {
	sinks []interfaces.Notifier
}

// NewMultiNotifier creates a fan-out notifier.
func NewMultiNotifier(sinks ...interfaces.Notifier) *MultiNotifier {
	return &MultiNotifier{sinks: sinks}
}

// Notify forwards the notification to every sink.
func (n *MultiNotifier) Notify(notification interfaces.Notification) {
	for _, sink := range n.sinks {
		sink.Notify(notification)
	}
}

// LogNotifier writes notifications to the structured log. Used as the default
// sink when no UI is attached.
type LogNotifier struct {
	logger arbor.ILogger
}

// NewLogNotifier creates a log-backed notification sink.
func NewLogNotifier(logger arbor.ILogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification at a level matching its severity.
func (n *LogNotifier) Notify(notification interfaces.Notification) {
	event := n.logger.Info()
	switch notification.Level {
	case interfaces.NotifyError:
		event = n.logger.Error()
	case interfaces.NotifyWarning:
		event = n.logger.Warn()
	}
	event.
		Str("dedup_key", notification.DedupKey).
		Str("level", string(notification.Level)).
		Msg(notification.Message)
}
