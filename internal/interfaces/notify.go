package interfaces

// LifecycleEvent names a user-visible job lifecycle transition.
type LifecycleEvent string

const (
	LifecycleStarted   LifecycleEvent = "started"
	LifecycleCompleted LifecycleEvent = "completed"
	LifecycleFailed    LifecycleEvent = "failed"
	LifecycleCancelled LifecycleEvent = "cancelled"
	LifecycleTimedOut  LifecycleEvent = "timed_out"
)

// NotificationLevel controls how a notification is rendered.
type NotificationLevel string

const (
	NotifyInfo    NotificationLevel = "info"
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
	NotifyWarning NotificationLevel = "warning"
)

// Notification is a user-facing message with a stable dedup key. Duplicate
// delivery of the same logical event collapses on DedupKey.
type Notification struct {
	Message  string            `json:"message"`
	Level    NotificationLevel `json:"level"`
	DedupKey string            `json:"dedup_key"`
}

// Notifier renders notifications. Rendering itself (toasts) is out of scope;
// implementations here forward to the event bus or the log.
type Notifier interface {
	Notify(n Notification)
}
