// Package notify maps job lifecycle transitions to user-facing notifications
// with stable dedup keys.
package notify

import (
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobsync/internal/interfaces"
	"github.com/ternarybob/jobsync/internal/models"
)

// EventForStatus maps a terminal job status to its lifecycle event.
// Non-terminal statuses return "" - they never notify.
func EventForStatus(status models.JobStatus) interfaces.LifecycleEvent {
	switch status {
	case models.JobStatusCompleted:
		return interfaces.LifecycleCompleted
	case models.JobStatusFailed:
		return interfaces.LifecycleFailed
	case models.JobStatusCancelled:
		return interfaces.LifecycleCancelled
	case models.JobStatusTimedOut:
		return interfaces.LifecycleTimedOut
	}
	return ""
}

// DedupKey derives the stable notification key for a lifecycle event on a run.
// Duplicate delivery of the same terminal event collapses on this key.
func DedupKey(event interfaces.LifecycleEvent, runID string) string {
	return fmt.Sprintf("%s:%s", event, runID)
}

// BuildNotification is the pure mapping from (jobType, lifecycle event,
// display name, error message) to a notification. Deletion jobs use distinct
// message templates ("X deleted" rather than "Deletion completed: X").
func BuildNotification(jobType string, event interfaces.LifecycleEvent, displayName, errorMessage, runID string) interfaces.Notification {
	name := displayName
	if name == "" {
		name = jobType
	}

	n := interfaces.Notification{
		DedupKey: DedupKey(event, runID),
	}

	isDeletion := jobType == models.JobTypeDeletion

	switch event {
	case interfaces.LifecycleStarted:
		n.Level = interfaces.NotifyInfo
		if isDeletion {
			n.Message = fmt.Sprintf("Deleting %s", name)
		} else {
			n.Message = fmt.Sprintf("Started: %s", name)
		}
	case interfaces.LifecycleCompleted:
		n.Level = interfaces.NotifySuccess
		if isDeletion {
			n.Message = fmt.Sprintf("%s deleted", name)
		} else {
			n.Message = fmt.Sprintf("Completed: %s", name)
		}
	case interfaces.LifecycleFailed:
		n.Level = interfaces.NotifyError
		if isDeletion {
			n.Message = fmt.Sprintf("Failed to delete %s", name)
		} else {
			n.Message = fmt.Sprintf("Failed: %s", name)
		}
		if errorMessage != "" {
			n.Message = fmt.Sprintf("%s - %s", n.Message, errorMessage)
		}
	case interfaces.LifecycleCancelled:
		n.Level = interfaces.NotifyWarning
		if isDeletion {
			n.Message = fmt.Sprintf("Deletion cancelled: %s", name)
		} else {
			n.Message = fmt.Sprintf("Cancelled: %s", name)
		}
	case interfaces.LifecycleTimedOut:
		n.Level = interfaces.NotifyError
		if isDeletion {
			n.Message = fmt.Sprintf("Deletion timed out: %s", name)
		} else {
			n.Message = fmt.Sprintf("Timed out: %s", name)
		}
	default:
		n.Level = interfaces.NotifyInfo
		n.Message = name
	}

	return n
}

// Dispatcher forwards notifications to a sink, suppressing duplicates by
// dedup key. The reconciliation engine already guards against double terminal
// transitions; this is a deliberate second line of defense for the case where
// the same terminal event lands via both push and poll.
type Dispatcher struct {
	notifier interfaces.Notifier
	logger   arbor.ILogger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDispatcher creates a dispatcher over the given sink.
func NewDispatcher(notifier interfaces.Notifier, logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
		seen:     make(map[string]struct{}),
	}
}

// Dispatch builds and emits the notification for a lifecycle transition.
// Returns false when the dedup key was already seen and nothing was emitted.
func (d *Dispatcher) Dispatch(jobType string, event interfaces.LifecycleEvent, displayName, errorMessage, runID string) bool {
	if event == "" {
		return false
	}

	n := BuildNotification(jobType, event, displayName, errorMessage, runID)

	d.mu.Lock()
	if _, dup := d.seen[n.DedupKey]; dup {
		d.mu.Unlock()
		d.logger.Debug().
			Str("dedup_key", n.DedupKey).
			Msg("Suppressed duplicate notification")
		return false
	}
	d.seen[n.DedupKey] = struct{}{}
	d.mu.Unlock()

	d.notifier.Notify(n)
	return true
}
