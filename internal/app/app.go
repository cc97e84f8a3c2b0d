package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/handlers"
	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/services/auth"
	"github.com/ternarybob/aditus/internal/services/events"
	"github.com/ternarybob/aditus/internal/services/notify"
	"github.com/ternarybob/aditus/internal/services/queue"
	"github.com/ternarybob/aditus/internal/services/scheduler"
	"github.com/ternarybob/aditus/internal/services/sheets"
	"github.com/ternarybob/aditus/internal/services/window"
	"github.com/ternarybob/aditus/internal/storage/badger"
)

// shutdownGrace bounds how long running browser sessions may finish during
// shutdown before the process exits anyway.
const shutdownGrace = 30 * time.Second

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	SecretBox      *common.SecretBox

	// Event-driven services
	EventService interfaces.EventService
	Notifier     interfaces.Notifier
	Spreadsheet  interfaces.Spreadsheet

	// Authentication and job execution
	AuthService  *auth.Service
	QueueManager interfaces.JobQueue

	// Scheduling
	SchedulerService interfaces.SchedulerService
	WindowGate       *window.Gate

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	JobHandler       *handlers.JobHandler
	SchedulerHandler *handlers.SchedulerHandler
	WindowHandler    *handlers.WindowHandler
	StatusHandler    *handlers.StatusHandler
	RunHandler       *handlers.RunHandler
	AccountHandler   *handlers.AccountHandler
	WSHandler        *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.SchedulerService.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info().
		Int("queue_concurrency", cfg.Queue.Concurrency).
		Bool("window_enabled", cfg.Window.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger) and seeds accounts.
func (a *App) initDatabase() error {
	box, err := common.NewSecretBox(a.Config.Secrets.Key)
	if err != nil {
		return fmt.Errorf("failed to initialize secret box: %w", err)
	}
	a.SecretBox = box

	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// Load account seed files (TOML). Failure is logged, not fatal: the
	// store may already hold accounts from a prior run or spreadsheet sync.
	if err := a.StorageManager.LoadAccountsFromFiles(context.Background(), a.Config.Accounts.SeedDir, a.SecretBox, a.Logger); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load account seed files")
	}

	return nil
}

// initServices initializes all business services in dependency order.
func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)
	a.Notifier = notify.NewWebhookNotifier(a.Config.Notify, a.Logger)
	a.Spreadsheet = sheets.NewService(a.Config.Spreadsheet, a.StorageManager.AccountStorage(), a.SecretBox, a.Logger)
	a.AuthService = auth.NewService(a.Config, a.SecretBox, a.Logger)

	a.QueueManager = queue.NewManager(
		a.Config.Queue,
		a.StorageManager.AccountStorage(),
		a.StorageManager.RunLogStorage(),
		a.AuthService,
		a.Notifier,
		a.Spreadsheet,
		a.EventService,
		a.Logger,
	)

	a.SchedulerService = scheduler.NewService(
		a.Config.Scheduler,
		a.StorageManager.ConfigStorage(),
		a.QueueManager,
		a.StorageManager.AccountStorage(),
		a.Spreadsheet,
		a.Notifier,
		a.EventService,
		a.Logger,
	)

	a.WindowGate = window.NewGate(a.Config.Window)
	return nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger, &a.Config.WebSocket)
	a.JobHandler = handlers.NewJobHandler(a.QueueManager, a.StorageManager.AccountStorage(), a.WindowGate, a.Logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService, a.Logger)
	a.WindowHandler = handlers.NewWindowHandler(a.WindowGate)
	a.RunHandler = handlers.NewRunHandler(a.StorageManager.RunLogStorage(), a.Logger)
	a.AccountHandler = handlers.NewAccountHandler(a.StorageManager.AccountStorage(), a.Spreadsheet, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(
		a.QueueManager,
		a.SchedulerService,
		a.StorageManager.AccountStorage(),
		a.StorageManager.RunLogStorage(),
		a.WindowGate,
		a.Logger,
	)
}

// Shutdown stops services in reverse dependency order.
func (a *App) Shutdown() {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Scheduler stop failed")
		}
	}

	if a.QueueManager != nil {
		a.QueueManager.Shutdown(shutdownGrace)
	}

	if a.WSHandler != nil {
		a.WSHandler.Close()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Event service close failed")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
}
