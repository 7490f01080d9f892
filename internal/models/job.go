// -----------------------------------------------------------------------
// Tracked Job - client-side mirror of a backend run
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of a backend run.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusTimedOut  JobStatus = "timed_out"
)

// IsTerminal returns true if no further transitions occur from this status.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusTimedOut:
		return true
	}
	return false
}

// IsActive returns true for statuses that still expect server updates.
func (s JobStatus) IsActive() bool {
	switch s {
	case JobStatusPending, JobStatusSubmitted, JobStatusRunning:
		return true
	}
	return false
}

// JobTypeDeletion is the reserved job type for bulk-deletion runs.
// All other job types come from the externally-supplied catalog.
const JobTypeDeletion = "deletion"

// JobProgress tracks run execution progress, including child-job counters
// for parent/child run patterns.
type JobProgress struct {
	Phase             string  `json:"phase,omitempty"`
	Current           int     `json:"current,omitempty"`
	Total             int     `json:"total,omitempty"`
	Percent           float64 `json:"percent,omitempty"`
	Unit              string  `json:"unit,omitempty"`
	ChildJobsTotal    int     `json:"child_jobs_total,omitempty"`
	ChildJobsComplete int     `json:"child_jobs_completed,omitempty"`
	ChildJobsFailed   int     `json:"child_jobs_failed,omitempty"`
}

// TrackedJob is a locally-tracked unit of backend work. The tracked set is
// keyed by RunID; a job is removed the moment its status becomes terminal.
type TrackedJob struct {
	RunID        string       `json:"run_id"`
	JobType      string       `json:"job_type"`
	DisplayName  string       `json:"display_name"`
	ResourceType string       `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`
	GroupID      string       `json:"group_id,omitempty"`
	Status       JobStatus    `json:"status"`
	StartedAt    time.Time    `json:"started_at"`
	Progress     *JobProgress `json:"progress,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`

	// Deletion-specific fields identifying the thing being deleted.
	ConfigID   string `json:"config_id,omitempty"`
	ConfigType string `json:"config_type,omitempty"`
}

// Clone creates a deep copy of the tracked job.
func (j *TrackedJob) Clone() *TrackedJob {
	clone := *j
	if j.Progress != nil {
		progress := *j.Progress
		clone.Progress = &progress
	}
	return &clone
}

// MergeProgress overlays non-zero progress fields onto the job's progress
// sub-structure, leaving all other job fields untouched.
func (j *TrackedJob) MergeProgress(p *JobProgress) {
	if p == nil {
		return
	}
	if j.Progress == nil {
		j.Progress = &JobProgress{}
	}
	if p.Phase != "" {
		j.Progress.Phase = p.Phase
	}
	if p.Current != 0 {
		j.Progress.Current = p.Current
	}
	if p.Total != 0 {
		j.Progress.Total = p.Total
	}
	if p.Percent != 0 {
		j.Progress.Percent = p.Percent
	}
	if p.Unit != "" {
		j.Progress.Unit = p.Unit
	}
	if p.ChildJobsTotal != 0 {
		j.Progress.ChildJobsTotal = p.ChildJobsTotal
	}
	if p.ChildJobsComplete != 0 {
		j.Progress.ChildJobsComplete = p.ChildJobsComplete
	}
	if p.ChildJobsFailed != 0 {
		j.Progress.ChildJobsFailed = p.ChildJobsFailed
	}
}

// Validate validates the tracked job.
func (j *TrackedJob) Validate() error {
	if j.RunID == "" {
		return fmt.Errorf("run ID is required")
	}
	if j.JobType == "" {
		return fmt.Errorf("job type is required")
	}
	if j.Status == "" {
		return fmt.Errorf("job status is required")
	}
	return nil
}

// ToJSON serializes the tracked job for storage.
func (j *TrackedJob) ToJSON() ([]byte, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tracked job: %w", err)
	}
	return data, nil
}

// TrackedJobFromJSON deserializes a tracked job from JSON.
func TrackedJobFromJSON(data []byte) (*TrackedJob, error) {
	var job TrackedJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tracked job: %w", err)
	}
	return &job, nil
}
