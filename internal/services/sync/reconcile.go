package sync

import (
	"context"
	"errors"

	"github.com/ternarybob/jobsync/internal/interfaces"
	"github.com/ternarybob/jobsync/internal/models"
	"github.com/ternarybob/jobsync/internal/services/notify"
)

// pendingNotification is a terminal notification decided under the engine
// lock but dispatched only after the state mutation is committed, so a
// notification handler observing the tracked set never sees mid-mutation
// state.
type pendingNotification struct {
	jobType      string
	event        interfaces.LifecycleEvent
	displayName  string
	errorMessage string
	runID        string
}

// HandleMessage feeds one decoded push-channel message through reconciliation.
// The polling driver funnels its pull results through the same entry points,
// so polled and pushed data get identical semantics.
func (e *Engine) HandleMessage(msg models.Message) {
	switch m := msg.(type) {
	case *models.RunStatusMessage:
		e.applyRunStatus(m)
	case *models.RunProgressMessage:
		e.applyRunProgress(m)
	case *models.QueueStatsMessage:
		e.applyQueueStats(&m.Stats)
	case *models.InitialStateMessage:
		e.applyInitialState(m)
	case *models.PongMessage:
		// Heartbeat acks are consumed by the transport; nothing to do.
	default:
		e.logger.Warn().Str("type", string(msg.MessageType())).Msg("Unhandled push message type")
	}
}

// applyRunStatus merges one run's full status into the tracked set.
//
// A run that is unknown and already terminal is ignored entirely: its whole
// lifecycle happened while nobody here was watching, so announcing it now
// would notify for work the user never saw as pending. A known run whose
// merged status is terminal notifies exactly once and leaves the set.
func (e *Engine) applyRunStatus(msg *models.RunStatusMessage) {
	if msg.RunID == "" {
		return
	}

	var (
		pending *pendingNotification
		persist func()
		event   interfaces.EventType
		payload *models.TrackedJob
	)

	e.mu.Lock()
	existing, tracked := e.jobs[msg.RunID]

	if !tracked {
		if msg.Status.IsTerminal() {
			e.mu.Unlock()
			return
		}
		// Discovered run (started from another tab or device): visible,
		// but never a "started" toast - only AddJob announces starts.
		job := msg.ToTrackedJob()
		if job.StartedAt.IsZero() {
			job.StartedAt = e.clock.Now()
		}
		e.jobs[job.RunID] = job
		e.lastUpdated = e.clock.Now()
		persist = e.persistLocked()
		event = interfaces.EventJobAdded
		payload = job.Clone()
		e.mu.Unlock()

		persist()
		e.publish(event, payload)
		return
	}

	mergeRunStatus(existing, msg)
	e.lastUpdated = e.clock.Now()

	if existing.Status.IsTerminal() {
		delete(e.jobs, existing.RunID)
		pending = &pendingNotification{
			jobType:      existing.JobType,
			event:        notify.EventForStatus(existing.Status),
			displayName:  existing.DisplayName,
			errorMessage: existing.ErrorMessage,
			runID:        existing.RunID,
		}
		event = interfaces.EventJobRemoved
		payload = existing.Clone()
	} else {
		event = interfaces.EventJobUpdated
		payload = existing.Clone()
	}
	persist = e.persistLocked()
	e.mu.Unlock()

	// State is committed; only now may the notification fire.
	persist()
	e.publish(event, payload)
	if pending != nil {
		e.dispatcher.Dispatch(pending.jobType, pending.event, pending.displayName, pending.errorMessage, pending.runID)
	}
}

// mergeRunStatus overlays server-reported fields onto a tracked job. The
// server is authoritative for status, progress and error; identity fields are
// only filled where the local record is missing them.
func mergeRunStatus(job *models.TrackedJob, msg *models.RunStatusMessage) {
	if msg.Status != "" {
		job.Status = msg.Status
	}
	if msg.DisplayName != "" {
		job.DisplayName = msg.DisplayName
	}
	if msg.ErrorMessage != "" {
		job.ErrorMessage = msg.ErrorMessage
	}
	if msg.Progress != nil {
		progress := *msg.Progress
		job.Progress = &progress
	}
	if job.ResourceType == "" {
		job.ResourceType = msg.ResourceType
	}
	if job.ResourceID == "" {
		job.ResourceID = msg.ResourceID
	}
	if job.GroupID == "" {
		job.GroupID = msg.GroupID
	}
	if job.ConfigID == "" {
		job.ConfigID = msg.ConfigID
	}
	if job.ConfigType == "" {
		job.ConfigType = msg.ConfigType
	}
}

// applyRunProgress merges progress fields into a matching tracked job. It
// never creates, removes, or notifies; an unknown run is a no-op.
func (e *Engine) applyRunProgress(msg *models.RunProgressMessage) {
	if msg.RunID == "" || msg.Progress == nil {
		return
	}

	e.mu.Lock()
	job, tracked := e.jobs[msg.RunID]
	if !tracked {
		e.mu.Unlock()
		return
	}
	job.MergeProgress(msg.Progress)
	e.lastUpdated = e.clock.Now()
	persist := e.persistLocked()
	payload := job.Clone()
	e.mu.Unlock()

	persist()
	if e.progressLimiter == nil || e.progressLimiter.Allow() {
		e.publish(interfaces.EventJobProgress, payload)
	}
}

// applyQueueStats replaces the stats snapshot wholesale; latest wins.
func (e *Engine) applyQueueStats(stats *models.QueueStats) {
	if stats == nil {
		return
	}

	e.mu.Lock()
	snapshot := *stats
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = e.clock.Now()
	}
	e.stats = &snapshot
	e.lastUpdated = e.clock.Now()
	e.mu.Unlock()

	e.publish(interfaces.EventStatsUpdated, snapshot)
}

// applyInitialState reconciles against the server's authoritative active-run
// list delivered once per (re)connection.
//
// Locally tracked jobs absent from the list are presumed to have finished
// while disconnected: they leave the set immediately and their outcome is
// resolved asynchronously against the REST layer. Matching runs are merged
// synchronously (server wins), unknown active runs are adopted silently, and
// the stats snapshot is replaced. The async resolution never re-adds a job,
// so a racing run_status merge always wins over a stale fetch.
func (e *Engine) applyInitialState(msg *models.InitialStateMessage) {
	type resolveTarget struct {
		runID       string
		jobType     string
		displayName string
	}

	var resolve []resolveTarget

	e.mu.Lock()

	if msg.ServerInstanceID != "" && e.serverInstanceID != "" && msg.ServerInstanceID != e.serverInstanceID {
		e.logger.Info().
			Str("server_instance_id", msg.ServerInstanceID).
			Msg("Server instance changed - reconciling full state")
	}
	if msg.ServerInstanceID != "" {
		e.serverInstanceID = msg.ServerInstanceID
	}

	active := make(map[string]*models.RunStatusMessage, len(msg.ActiveRuns))
	for i := range msg.ActiveRuns {
		run := &msg.ActiveRuns[i]
		if run.RunID == "" || !run.Status.IsActive() {
			continue
		}
		active[run.RunID] = run
	}

	// Step 1: drop tracked jobs the server no longer reports as active.
	for runID, job := range e.jobs {
		if _, stillActive := active[runID]; stillActive {
			continue
		}
		delete(e.jobs, runID)
		resolve = append(resolve, resolveTarget{
			runID:       runID,
			jobType:     job.JobType,
			displayName: job.DisplayName,
		})
	}

	// Steps 2 and 3: merge matches, adopt unknowns (silently - these were
	// not begun by local user action in this session).
	var added, updated []*models.TrackedJob
	for runID, run := range active {
		if job, tracked := e.jobs[runID]; tracked {
			mergeRunStatus(job, run)
			updated = append(updated, job.Clone())
			continue
		}
		job := run.ToTrackedJob()
		if job.StartedAt.IsZero() {
			job.StartedAt = e.clock.Now()
		}
		e.jobs[runID] = job
		added = append(added, job.Clone())
	}

	e.lastUpdated = e.clock.Now()
	persist := e.persistLocked()
	e.mu.Unlock()

	persist()
	for _, job := range added {
		e.publish(interfaces.EventJobAdded, job)
	}
	for _, job := range updated {
		e.publish(interfaces.EventJobUpdated, job)
	}
	for _, target := range resolve {
		e.publish(interfaces.EventJobRemoved, &models.TrackedJob{
			RunID:       target.runID,
			JobType:     target.jobType,
			DisplayName: target.displayName,
		})
	}

	// Step 4: stats snapshot.
	if msg.Stats != nil {
		e.applyQueueStats(msg.Stats)
	}

	// Step 1 resolution runs off the hot path: fetch each dropped job's
	// final status and notify on its real outcome.
	for _, target := range resolve {
		go e.resolveDroppedJob(target.runID, target.jobType, target.displayName)
	}
}

// resolveDroppedJob fetches the final status of a job that vanished from the
// active-run list while the client was disconnected. A not-found or failed
// fetch resolves silently; only a confirmed terminal status notifies.
func (e *Engine) resolveDroppedJob(runID, jobType, displayName string) {
	ctx := e.runContext()
	if ctx == nil {
		ctx = context.Background()
	}

	run, err := e.api.GetJob(ctx, runID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			e.logger.Debug().Str("run_id", runID).Msg("Dropped job no longer exists - resolved silently")
		} else {
			e.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to resolve dropped job outcome")
		}
		return
	}

	if !run.Status.IsTerminal() {
		// Still active despite missing from the snapshot; a following
		// run_status or poll pass will pick it up again.
		e.logger.Debug().Str("run_id", runID).Str("status", string(run.Status)).Msg("Dropped job still active")
		return
	}

	errorMessage := run.ErrorMessage
	name := displayName
	if run.DisplayName != "" {
		name = run.DisplayName
	}
	e.dispatcher.Dispatch(jobType, notify.EventForStatus(run.Status), name, errorMessage, runID)
}

// removeJobSilently drops a tracked job without any notification. Used when
// polling discovers the backend record is gone (the resource vanished, it did
// not complete).
func (e *Engine) removeJobSilently(runID string) {
	e.mu.Lock()
	job, tracked := e.jobs[runID]
	if !tracked {
		e.mu.Unlock()
		return
	}
	delete(e.jobs, runID)
	e.lastUpdated = e.clock.Now()
	persist := e.persistLocked()
	payload := job.Clone()
	e.mu.Unlock()

	persist()
	e.publish(interfaces.EventJobRemoved, payload)
}

func (e *Engine) runContext() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runCtx
}
