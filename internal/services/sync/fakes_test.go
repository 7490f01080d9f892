package sync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobsync/internal/interfaces"
	"github.com/ternarybob/jobsync/internal/models"
	"github.com/ternarybob/jobsync/internal/services/events"
	"github.com/ternarybob/jobsync/internal/services/notify"
)

// memStore is an in-memory JobStore for tests.
type memStore struct {
	mu    sync.Mutex
	jobs  []*models.TrackedJob
	saves int
}

func (s *memStore) Load(ctx context.Context) ([]*models.TrackedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.TrackedJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	return out, nil
}

func (s *memStore) Save(ctx context.Context, jobs []*models.TrackedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.jobs = nil
	for _, job := range jobs {
		s.jobs = append(s.jobs, job.Clone())
	}
	return nil
}

func (s *memStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = nil
	return nil
}

func (s *memStore) persisted() []*models.TrackedJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.TrackedJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	return out
}

// fakeAPI serves canned run statuses and queue stats.
type fakeAPI struct {
	mu       sync.Mutex
	runs     map[string]*models.RunStatusMessage
	errs     map[string]error
	stats    *models.QueueStats
	statsErr error
	getCalls []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		runs: make(map[string]*models.RunStatusMessage),
		errs: make(map[string]error),
	}
}

func (a *fakeAPI) GetJob(ctx context.Context, runID string) (*models.RunStatusMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.getCalls = append(a.getCalls, runID)
	if err, ok := a.errs[runID]; ok {
		return nil, err
	}
	if run, ok := a.runs[runID]; ok {
		dup := *run
		return &dup, nil
	}
	return nil, interfaces.ErrJobNotFound
}

func (a *fakeAPI) GetQueueStats(ctx context.Context) (*models.QueueStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.statsErr != nil {
		return nil, a.statsErr
	}
	if a.stats == nil {
		return &models.QueueStats{}, nil
	}
	dup := *a.stats
	return &dup, nil
}

func (a *fakeAPI) setRun(run *models.RunStatusMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs[run.RunID] = run
}

func (a *fakeAPI) setErr(runID string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs[runID] = err
}

// recordingNotifier captures every emitted notification.
type recordingNotifier struct {
	mu  sync.Mutex
	got []interfaces.Notification
}

func (n *recordingNotifier) Notify(notification interfaces.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, notification)
}

func (n *recordingNotifier) notifications() []interfaces.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]interfaces.Notification, len(n.got))
	copy(out, n.got)
	return out
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.got)
}

// fakeTransport records callbacks and lets tests drive them directly.
type fakeTransport struct {
	mu        sync.Mutex
	callbacks interfaces.TransportCallbacks
	connected bool
}

func (t *fakeTransport) Connect(ctx context.Context, token string, callbacks interfaces.TransportCallbacks) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = callbacks
	t.connected = true
	return nil
}

func (t *fakeTransport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
}

func (t *fakeTransport) Callbacks() interfaces.TransportCallbacks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.callbacks
}

func (t *fakeTransport) Status() models.ConnectionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected {
		return models.StatusConnected
	}
	return models.StatusDisconnected
}

// manualClock is a deterministic Clock. Tickers never fire unless the test
// fires them.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func (c *manualClock) NewTicker(d time.Duration) interfaces.Ticker {
	return &manualTicker{ch: make(chan time.Time, 1)}
}

type manualTicker struct {
	ch chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               {}

// harness bundles an engine with all its observable collaborators.
type harness struct {
	engine    *Engine
	store     *memStore
	api       *fakeAPI
	transport *fakeTransport
	notifier  *recordingNotifier
	clock     *manualClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := arbor.NewLogger()
	store := &memStore{}
	api := newFakeAPI()
	transport := &fakeTransport{}
	notifier := &recordingNotifier{}
	clock := newManualClock()

	engine := NewEngine(
		Options{},
		store,
		api,
		transport,
		notify.NewDispatcher(notifier, logger),
		events.NewService(logger),
		clock,
		logger,
	)

	return &harness{
		engine:    engine,
		store:     store,
		api:       api,
		transport: transport,
		notifier:  notifier,
		clock:     clock,
	}
}

func activeJob(runID, jobType string) *models.TrackedJob {
	return &models.TrackedJob{
		RunID:       runID,
		JobType:     jobType,
		DisplayName: jobType + " " + runID,
		Status:      models.JobStatusRunning,
	}
}

func statusMsg(runID string, status models.JobStatus) *models.RunStatusMessage {
	return &models.RunStatusMessage{
		RunID:   runID,
		RunType: "scrape",
		Status:  status,
	}
}
