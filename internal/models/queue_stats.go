package models

import "time"

// QueueCounters holds the counter group for one named backend queue.
type QueueCounters struct {
	Pending   int `json:"pending"`
	InFlight  int `json:"in_flight"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// QueueStats is an aggregate snapshot of all backend queues plus recent-window
// outcome counts and worker activity. It is replaced wholesale on each update;
// there is no merge logic beyond latest-wins.
type QueueStats struct {
	Queues map[string]QueueCounters `json:"queues"`

	// Recent-window outcome counts
	RecentCompleted int `json:"recent_completed"`
	RecentFailed    int `json:"recent_failed"`
	RecentTimedOut  int `json:"recent_timed_out"`

	// Worker activity
	ActiveWorkers int `json:"active_workers"`
	IdleWorkers   int `json:"idle_workers"`

	Timestamp time.Time `json:"timestamp"`
}
