// Package app wires the sync engine and its collaborators into a runnable
// application.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobsync/internal/api"
	"github.com/ternarybob/jobsync/internal/common"
	"github.com/ternarybob/jobsync/internal/handlers"
	"github.com/ternarybob/jobsync/internal/interfaces"
	"github.com/ternarybob/jobsync/internal/services/events"
	"github.com/ternarybob/jobsync/internal/services/notify"
	"github.com/ternarybob/jobsync/internal/services/scheduler"
	syncsvc "github.com/ternarybob/jobsync/internal/services/sync"
	badgerstore "github.com/ternarybob/jobsync/internal/storage/badger"
	"github.com/ternarybob/jobsync/internal/transport"
)

// App holds all application components and dependencies.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB           *badgerstore.BadgerDB
	EventService interfaces.EventService
	Engine       *syncsvc.Engine
	Scheduler    *scheduler.Service

	// HTTP handlers
	MirrorHandler *handlers.MirrorHandler

	token string
}

// New wires all components. Nothing connects to the backend until Start.
func New(config *common.Config, logger arbor.ILogger, token string) (*App, error) {
	db, err := badgerstore.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	eventService := events.NewService(logger)

	notifier := notify.NewMultiNotifier(
		notify.NewEventBusNotifier(eventService),
		notify.NewLogNotifier(logger),
	)
	dispatcher := notify.NewDispatcher(notifier, logger)

	requestTimeout := common.ParseDuration(config.Backend.RequestTimeout, 10*time.Second)
	jobAPI := api.NewClient(config.Backend.BaseURL, token, requestTimeout, logger)

	clock := common.NewSystemClock()

	pushClient := transport.NewClient(transport.Options{
		URL:               config.Transport.URL,
		HeartbeatInterval: common.ParseDuration(config.Transport.HeartbeatInterval, 30*time.Second),
		ReconnectBaseWait: common.ParseDuration(config.Transport.ReconnectBaseWait, time.Second),
		ReconnectMaxWait:  common.ParseDuration(config.Transport.ReconnectMaxWait, 30*time.Second),
		MaxReconnects:     config.Transport.MaxReconnects,
	}, transport.NewWebSocketDialer(requestTimeout), clock, logger)

	engine := syncsvc.NewEngine(syncsvc.Options{
		JobPollInterval:   common.ParseDuration(config.Polling.JobInterval, 5*time.Second),
		StatsPollInterval: common.ParseDuration(config.Polling.StatsInterval, 10*time.Second),
		ProgressEventRate: 250 * time.Millisecond,
	}, badgerstore.NewJobStorage(db, logger), jobAPI, pushClient, dispatcher, eventService, clock, logger)

	return &App{
		Config:        config,
		Logger:        logger,
		DB:            db,
		EventService:  eventService,
		Engine:        engine,
		Scheduler:     scheduler.NewService(engine.Refresh, logger),
		MirrorHandler: handlers.NewMirrorHandler(engine, logger),
		token:         token,
	}, nil
}

// Start brings up the engine and the scheduled refresh.
func (a *App) Start(ctx context.Context) error {
	if err := a.Engine.Start(ctx, a.token); err != nil {
		return err
	}
	if err := a.Scheduler.Start(a.Config.Scheduler.RefreshSchedule); err != nil {
		a.Engine.Stop()
		return err
	}
	return nil
}

// Close tears everything down in reverse dependency order.
func (a *App) Close() {
	a.Scheduler.Stop()
	a.Engine.Stop()
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close storage")
	}
}
