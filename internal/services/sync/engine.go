// Package sync implements the job-state synchronization engine: a live,
// deduplicated mirror of backend runs reconciled from the push channel, the
// polling fallback, and state persisted by a previous session.
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/jobsync/internal/interfaces"
	"github.com/ternarybob/jobsync/internal/models"
	"github.com/ternarybob/jobsync/internal/services/notify"
)

// Options configures the engine.
type Options struct {
	JobPollInterval   time.Duration // per-job status pull while polling
	StatsPollInterval time.Duration // aggregate stats pull while polling
	ProgressEventRate time.Duration // min interval between job_progress bus events (0 = unthrottled)
}

// Engine owns the tracked-job set and the queue-stats snapshot. All mutation
// goes through its lock; the UI observes via the event bus and the read-only
// query surface. Constructed once per authenticated session.
type Engine struct {
	opts       Options
	store      interfaces.JobStore
	api        interfaces.JobAPI
	transport  interfaces.PushTransport
	dispatcher *notify.Dispatcher
	events     interfaces.EventService
	clock      interfaces.Clock
	logger     arbor.ILogger

	// progressLimiter throttles job_progress bus events so a chatty run
	// cannot flood UI subscribers. State merges are never throttled.
	progressLimiter *rate.Limiter

	mu               sync.Mutex
	jobs             map[string]*models.TrackedJob
	stats            *models.QueueStats
	connStatus       models.ConnectionStatus
	serverInstanceID string
	lastUpdated      time.Time
	isLoading        bool
	lastErr          error

	poller  *Poller
	runCtx  context.Context
	cancel  context.CancelFunc
	started bool

	persistMu  sync.Mutex
	persistGen uint64
	writtenGen uint64
}

// NewEngine wires the engine against its collaborators.
func NewEngine(
	opts Options,
	store interfaces.JobStore,
	jobAPI interfaces.JobAPI,
	transport interfaces.PushTransport,
	dispatcher *notify.Dispatcher,
	events interfaces.EventService,
	clock interfaces.Clock,
	logger arbor.ILogger,
) *Engine {
	if opts.JobPollInterval <= 0 {
		opts.JobPollInterval = 5 * time.Second
	}
	if opts.StatsPollInterval <= 0 {
		opts.StatsPollInterval = 10 * time.Second
	}

	e := &Engine{
		opts:       opts,
		store:      store,
		api:        jobAPI,
		transport:  transport,
		dispatcher: dispatcher,
		events:     events,
		clock:      clock,
		logger:     logger,
		jobs:       make(map[string]*models.TrackedJob),
		connStatus: models.StatusDisconnected,
	}
	if opts.ProgressEventRate > 0 {
		e.progressLimiter = rate.NewLimiter(rate.Every(opts.ProgressEventRate), 1)
	}
	e.poller = newPoller(e, clock, logger, opts.JobPollInterval, opts.StatsPollInterval)
	return e
}

// Start restores the persisted tracked set and brings up the push transport.
func (e *Engine) Start(ctx context.Context, token string) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("sync engine already started")
	}
	e.started = true
	e.isLoading = true
	e.runCtx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	restored, err := e.store.Load(e.runCtx)
	if err != nil {
		// Load never fails on corruption; anything else degrades to empty.
		e.logger.Warn().Err(err).Msg("Failed to restore tracked job set")
	}

	e.mu.Lock()
	for _, job := range restored {
		e.jobs[job.RunID] = job
	}
	e.isLoading = false
	count := len(e.jobs)
	e.mu.Unlock()

	e.logger.Info().Int("restored", count).Msg("Sync engine starting")

	callbacks := interfaces.TransportCallbacks{
		OnMessage:           e.HandleMessage,
		OnConnectionChange:  e.onConnectionChange,
		OnFallbackToPolling: e.onFallbackToPolling,
		OnAuthError:         e.onAuthError,
	}
	if err := e.transport.Connect(e.runCtx, token, callbacks); err != nil {
		return fmt.Errorf("failed to start push transport: %w", err)
	}
	return nil
}

// Stop synchronously tears down the transport and the polling loops. Tracked
// state stays persisted; nothing is flushed to the backend.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	cancel := e.cancel
	e.mu.Unlock()

	e.transport.Disconnect()
	e.poller.Stop()
	if cancel != nil {
		cancel()
	}

	e.setConnectionStatus(models.StatusDisconnected)
	e.logger.Info().Msg("Sync engine stopped")
}

func (e *Engine) onConnectionChange(status models.ConnectionStatus) {
	e.setConnectionStatus(status)

	if status == models.StatusPolling {
		e.poller.Start(e.runContext())
	} else {
		e.poller.Stop()
	}
}

func (e *Engine) onFallbackToPolling() {
	e.logger.Warn().Msg("Push channel unavailable - switching to polling")
	ctx := e.runContext()
	if ctx == nil {
		return
	}
	// Kick one immediate pass so the mirror does not wait a full interval.
	go e.poller.RunJobPassOnce(ctx)
	go e.poller.RunStatsPassOnce(ctx)
}

func (e *Engine) onAuthError(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()

	_ = e.events.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventConnectionStatus,
		Payload: map[string]interface{}{"status": "auth_error", "error": err.Error()},
	})
}

func (e *Engine) setConnectionStatus(status models.ConnectionStatus) {
	e.mu.Lock()
	if e.connStatus == status {
		e.mu.Unlock()
		return
	}
	e.connStatus = status
	e.mu.Unlock()

	_ = e.events.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventConnectionStatus,
		Payload: status,
	})
}

// persistLocked snapshots the tracked set for persistence. Caller holds e.mu.
// The write itself happens outside the lock; a generation counter drops
// writes that were superseded before they reached storage.
func (e *Engine) persistLocked() func() {
	e.persistGen++
	gen := e.persistGen
	snapshot := make([]*models.TrackedJob, 0, len(e.jobs))
	for _, job := range e.jobs {
		snapshot = append(snapshot, job.Clone())
	}

	return func() {
		e.persistMu.Lock()
		defer e.persistMu.Unlock()
		if gen <= e.writtenGen {
			return
		}
		e.writtenGen = gen
		if err := e.store.Save(context.Background(), snapshot); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to persist tracked job set")
		}
	}
}

func (e *Engine) publish(eventType interfaces.EventType, payload interface{}) {
	_ = e.events.Publish(context.Background(), interfaces.Event{
		Type:    eventType,
		Payload: payload,
	})
}
