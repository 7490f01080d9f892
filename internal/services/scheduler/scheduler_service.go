// Package scheduler runs the optional cron-driven forced refresh: on each
// schedule tick the engine pulls job statuses and queue stats regardless of
// the push channel's health, catching anything a dropped frame missed.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Service wraps a cron runner around a refresh callback.
type Service struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	refresh func()

	mu      sync.Mutex
	entryID cron.EntryID
	running bool
}

// NewService creates a scheduler around the given refresh callback.
func NewService(refresh func(), logger arbor.ILogger) *Service {
	return &Service{
		cron:    cron.New(),
		logger:  logger,
		refresh: refresh,
	}
}

// Start registers the schedule and begins ticking. An empty schedule disables
// the scheduler without error.
func (s *Service) Start(schedule string) error {
	if schedule == "" {
		s.logger.Debug().Msg("Scheduled refresh disabled - no schedule configured")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.logger.Debug().Str("schedule", schedule).Msg("Running scheduled refresh")
		s.refresh()
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	s.entryID = entryID
	s.running = true
	s.cron.Start()

	s.logger.Info().Str("schedule", schedule).Msg("Scheduled refresh enabled")
	return nil
}

// Stop halts the cron runner and waits for an in-flight refresh to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduled refresh stopped")
}
