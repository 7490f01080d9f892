package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/jobsync/internal/models"
)

func TestJobPassAppliesPolledStatuses(t *testing.T) {
	h := newHarness(t)

	h.engine.AddJob(activeJob("done", "scrape"))
	h.engine.AddJob(activeJob("gone", "scrape"))
	h.engine.AddJob(activeJob("flaky", "scrape"))

	h.api.setRun(statusMsg("done", models.JobStatusCompleted))
	// "gone" has no backend record at all: ErrJobNotFound by default.
	h.api.setErr("flaky", errors.New("connection refused"))

	h.engine.poller.RunJobPassOnce(context.Background())

	jobs := h.engine.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "flaky", jobs[0].RunID) // transient error retains the job

	// Three started toasts plus exactly one completed; the vanished record
	// is removed without notifying.
	got := h.notifier.notifications()
	require.Len(t, got, 4)
	assert.Equal(t, "completed:done", got[3].DedupKey)
}

func TestJobPassSkippedWhileBusy(t *testing.T) {
	h := newHarness(t)
	h.engine.AddJob(activeJob("r1", "scrape"))
	h.api.setRun(statusMsg("r1", models.JobStatusCompleted))

	h.engine.poller.jobBusy.Store(true)
	h.engine.poller.RunJobPassOnce(context.Background())

	// Nothing pulled, nothing changed.
	assert.Equal(t, 1, h.engine.ActiveCount())
	h.api.mu.Lock()
	calls := len(h.api.getCalls)
	h.api.mu.Unlock()
	assert.Equal(t, 0, calls)
}

func TestJobPassPollsAgainAfterTransientError(t *testing.T) {
	h := newHarness(t)
	h.engine.AddJob(activeJob("r1", "scrape"))
	h.api.setErr("r1", errors.New("timeout"))

	h.engine.poller.RunJobPassOnce(context.Background())
	require.Equal(t, 1, h.engine.ActiveCount())

	// Backend recovers; the next pass picks up the terminal status.
	h.api.mu.Lock()
	delete(h.api.errs, "r1")
	h.api.mu.Unlock()
	h.api.setRun(statusMsg("r1", models.JobStatusCompleted))

	h.engine.poller.RunJobPassOnce(context.Background())
	assert.Equal(t, 0, h.engine.ActiveCount())
	assert.Equal(t, "completed:r1", h.notifier.notifications()[1].DedupKey)
}

func TestStatsPassReplacesSnapshot(t *testing.T) {
	h := newHarness(t)
	h.api.stats = &models.QueueStats{ActiveWorkers: 2}

	h.engine.poller.RunStatsPassOnce(context.Background())

	stats := h.engine.QueueStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.ActiveWorkers)
	assert.False(t, stats.Timestamp.IsZero())
}

func TestStatsPassErrorKeepsLastSnapshot(t *testing.T) {
	h := newHarness(t)
	h.api.stats = &models.QueueStats{ActiveWorkers: 2}
	h.engine.poller.RunStatsPassOnce(context.Background())

	h.api.mu.Lock()
	h.api.statsErr = errors.New("service unavailable")
	h.api.mu.Unlock()
	h.engine.poller.RunStatsPassOnce(context.Background())

	stats := h.engine.QueueStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.ActiveWorkers)
}

func TestPollerStartStopIdempotent(t *testing.T) {
	h := newHarness(t)
	p := h.engine.poller

	p.Start(context.Background())
	p.Start(context.Background()) // second start is a no-op
	p.Stop()
	p.Stop() // second stop is a no-op
}

func TestFallbackActivatesPolling(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Start(context.Background(), "token"))
	defer h.engine.Stop()

	callbacks := h.transport.Callbacks()
	callbacks.OnConnectionChange(models.StatusPolling)
	assert.Equal(t, models.StatusPolling, h.engine.ConnectionStatus())

	callbacks.OnConnectionChange(models.StatusConnected)
	assert.Equal(t, models.StatusConnected, h.engine.ConnectionStatus())
}
