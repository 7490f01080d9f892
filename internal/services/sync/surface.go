package sync

import (
	"sort"
	"time"

	"github.com/ternarybob/jobsync/internal/interfaces"
	"github.com/ternarybob/jobsync/internal/models"
)

// AddJob tracks a job started by the local user and announces it. This is
// the only path that fires a "started" notification; discovery never does.
// Adding an already-tracked run is a no-op.
func (e *Engine) AddJob(job *models.TrackedJob) {
	if job == nil || job.RunID == "" {
		return
	}

	e.mu.Lock()
	if _, exists := e.jobs[job.RunID]; exists {
		e.mu.Unlock()
		return
	}

	tracked := job.Clone()
	tracked.Status = models.JobStatusPending
	if tracked.StartedAt.IsZero() {
		tracked.StartedAt = e.clock.Now()
	}
	e.jobs[tracked.RunID] = tracked
	e.lastUpdated = e.clock.Now()
	persist := e.persistLocked()
	payload := tracked.Clone()
	e.mu.Unlock()

	persist()
	e.publish(interfaces.EventJobAdded, payload)
	e.dispatcher.Dispatch(tracked.JobType, interfaces.LifecycleStarted, tracked.DisplayName, "", tracked.RunID)
}

// UpdateJob applies a UI-driven correction to a tracked job. No notification
// side effects; unknown runs are a no-op.
func (e *Engine) UpdateJob(runID string, mutate func(job *models.TrackedJob)) {
	if mutate == nil {
		return
	}

	e.mu.Lock()
	job, tracked := e.jobs[runID]
	if !tracked {
		e.mu.Unlock()
		return
	}
	mutate(job)
	e.lastUpdated = e.clock.Now()
	persist := e.persistLocked()
	payload := job.Clone()
	e.mu.Unlock()

	persist()
	e.publish(interfaces.EventJobUpdated, payload)
}

// RemoveJob drops a tracked job without notification side effects.
func (e *Engine) RemoveJob(runID string) {
	e.removeJobSilently(runID)
}

// Jobs returns the tracked set, newest first.
func (e *Engine) Jobs() []*models.TrackedJob {
	e.mu.Lock()
	jobs := make([]*models.TrackedJob, 0, len(e.jobs))
	for _, job := range e.jobs {
		jobs = append(jobs, job.Clone())
	}
	e.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	return jobs
}

// GetJobsForResource returns tracked jobs acting on one domain object.
func (e *Engine) GetJobsForResource(resourceType, resourceID string) []*models.TrackedJob {
	e.mu.Lock()
	defer e.mu.Unlock()

	var jobs []*models.TrackedJob
	for _, job := range e.jobs {
		if job.ResourceType == resourceType && job.ResourceID == resourceID {
			jobs = append(jobs, job.Clone())
		}
	}
	return jobs
}

// IsResourceBusy reports whether any tracked job is acting on the resource.
// Everything in the tracked set is active by construction - terminal jobs
// are removed the moment they finish.
func (e *Engine) IsResourceBusy(resourceType, resourceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, job := range e.jobs {
		if job.ResourceType == resourceType && job.ResourceID == resourceID {
			return true
		}
	}
	return false
}

// GetJobsByType returns tracked jobs of one type.
func (e *Engine) GetJobsByType(jobType string) []*models.TrackedJob {
	e.mu.Lock()
	defer e.mu.Unlock()

	var jobs []*models.TrackedJob
	for _, job := range e.jobs {
		if job.JobType == jobType {
			jobs = append(jobs, job.Clone())
		}
	}
	return jobs
}

// HasActiveJobs reports whether anything is being tracked.
func (e *Engine) HasActiveJobs() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.jobs) > 0
}

// ActiveCount returns the number of tracked jobs.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.jobs)
}

// QueueStats returns the latest stats snapshot, or nil before the first one.
func (e *Engine) QueueStats() *models.QueueStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stats == nil {
		return nil
	}
	snapshot := *e.stats
	return &snapshot
}

// ConnectionStatus returns the current push-channel status.
func (e *Engine) ConnectionStatus() models.ConnectionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connStatus
}

// IsLoading reports whether the persisted set is still being restored.
func (e *Engine) IsLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isLoading
}

// Err returns the last unrecoverable error (auth rejection), or nil.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// LastUpdated returns when the mirror last changed.
func (e *Engine) LastUpdated() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUpdated
}

// Refresh forces one immediate pass of both polling loops regardless of the
// current connection status. Used for manual refresh actions.
func (e *Engine) Refresh() {
	ctx := e.runContext()
	if ctx == nil {
		return
	}
	e.poller.RunJobPassOnce(ctx)
	e.poller.RunStatsPassOnce(ctx)
}
