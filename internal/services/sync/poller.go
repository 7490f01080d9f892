package sync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobsync/internal/interfaces"
)

// Poller is the polling fallback driver: while the push channel is down it
// pulls per-job status on a short interval and aggregate stats on a longer
// one, feeding both through the same reconciliation paths as pushed data.
type Poller struct {
	engine        *Engine
	clock         interfaces.Clock
	logger        arbor.ILogger
	jobInterval   time.Duration
	statsInterval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	// busy flags serialize each loop's own ticks; a tick is skipped when the
	// previous one has not finished. The two loops run independently.
	jobBusy   atomic.Bool
	statsBusy atomic.Bool
}

func newPoller(engine *Engine, clock interfaces.Clock, logger arbor.ILogger, jobInterval, statsInterval time.Duration) *Poller {
	return &Poller{
		engine:        engine,
		clock:         clock,
		logger:        logger,
		jobInterval:   jobInterval,
		statsInterval: statsInterval,
	}
}

// Start launches both interval loops. Idempotent while running.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.mu.Unlock()

	p.logger.Info().
		Str("job_interval", p.jobInterval.String()).
		Str("stats_interval", p.statsInterval.String()).
		Msg("Polling fallback started")

	go p.run(loopCtx)
}

// Stop halts both loops synchronously; no tick fires after it returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done
	p.logger.Info().Msg("Polling fallback stopped")
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	jobTicker := p.clock.NewTicker(p.jobInterval)
	defer jobTicker.Stop()
	statsTicker := p.clock.NewTicker(p.statsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-jobTicker.C():
			go p.RunJobPassOnce(ctx)
		case <-statsTicker.C():
			go p.RunStatsPassOnce(ctx)
		}
	}
}

// RunJobPassOnce pulls the latest status for every tracked job and feeds each
// result through the run_status path. Skipped if a previous pass is still in
// flight.
func (p *Poller) RunJobPassOnce(ctx context.Context) {
	if !p.jobBusy.CompareAndSwap(false, true) {
		return
	}
	defer p.jobBusy.Store(false)

	for _, job := range p.engine.Jobs() {
		if ctx.Err() != nil {
			return
		}

		run, err := p.engine.api.GetJob(ctx, job.RunID)
		if err != nil {
			if errors.Is(err, interfaces.ErrJobNotFound) {
				// The backend record is gone, not completed: remove silently.
				p.engine.removeJobSilently(job.RunID)
				continue
			}
			// Transient failure: keep the job for the next tick.
			p.logger.Warn().Err(err).Str("run_id", job.RunID).Msg("Job poll failed")
			continue
		}

		p.engine.applyRunStatus(run)
	}
}

// RunStatsPassOnce pulls aggregate queue stats through the queue_stats path.
// Skipped if a previous pass is still in flight.
func (p *Poller) RunStatsPassOnce(ctx context.Context) {
	if !p.statsBusy.CompareAndSwap(false, true) {
		return
	}
	defer p.statsBusy.Store(false)

	stats, err := p.engine.api.GetQueueStats(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Stats poll failed")
		return
	}
	p.engine.applyQueueStats(stats)
}
