// -----------------------------------------------------------------------
// Scheduler - timezone-aware daily batch trigger
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/models"
)

// nearTermWindow is how close a schedule update may land to "now" before a
// one-shot correction timer is armed alongside the cron entry. The cron
// primitive has minute resolution and can miss a retarget inside the
// current minute.
const nearTermWindow = 5 * time.Minute

// Service owns the recurring daily login batch trigger and a secondary
// daily status check. Start is idempotent: it stops any cron it previously
// registered before registering new entries, so a hot-reload can never
// leave two live triggers firing the same schedule.
type Service struct {
	mu         sync.Mutex
	cron       *cron.Cron
	running    bool
	correction *time.Timer
	lastFired  time.Time

	seed common.SchedulerConfig

	configStore interfaces.ConfigStorage
	queue       interfaces.JobQueue
	accounts    interfaces.AccountStorage
	sheet       interfaces.Spreadsheet
	notifier    interfaces.Notifier
	events      interfaces.EventService
	logger      arbor.ILogger
}

// NewService creates the scheduler. The seed config only populates an
// empty config store; a persisted schedule always wins.
func NewService(
	seed common.SchedulerConfig,
	configStore interfaces.ConfigStorage,
	queue interfaces.JobQueue,
	accounts interfaces.AccountStorage,
	sheet interfaces.Spreadsheet,
	notifier interfaces.Notifier,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		seed:        seed,
		configStore: configStore,
		queue:       queue,
		accounts:    accounts,
		sheet:       sheet,
		notifier:    notifier,
		events:      events,
		logger:      logger,
	}
}

// schedule returns the effective schedule: the persisted one, or the seed
// persisted on first use.
func (s *Service) schedule(ctx context.Context) (*models.ScheduleConfig, error) {
	stored, err := s.configStore.GetSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	if stored != nil {
		return stored, nil
	}

	seeded := &models.ScheduleConfig{
		Hour:     s.seed.Hour,
		Minute:   s.seed.Minute,
		Timezone: s.seed.Timezone,
	}
	if err := s.configStore.SaveSchedule(ctx, seeded); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist seeded schedule")
	}
	return seeded, nil
}

// Start registers the daily batch and status-check cron entries. Any
// previously registered entries owned by this service are stopped first.
func (s *Service) Start() error {
	cfg, err := s.schedule(context.Background())
	if err != nil {
		return err
	}
	if err := validateScheduleTime(cfg.Hour, cfg.Minute); err != nil {
		return err
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid schedule timezone %q: %w", cfg.Timezone, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	c := cron.New()
	batchExpr := cronExpr(cfg.Hour, cfg.Minute, cfg.Timezone)
	if _, err := c.AddFunc(batchExpr, s.runDailyBatch); err != nil {
		return fmt.Errorf("failed to register daily batch trigger: %w", err)
	}

	statusExpr := cronExpr(s.seed.StatusCheckHour, s.seed.StatusCheckMinute, cfg.Timezone)
	if _, err := c.AddFunc(statusExpr, s.runStatusCheck); err != nil {
		return fmt.Errorf("failed to register status check trigger: %w", err)
	}

	c.Start()
	s.cron = c
	s.running = true

	s.logger.Info().
		Str("batch_cron", batchExpr).
		Str("status_cron", statusExpr).
		Msg("Scheduler started")
	return nil
}

// Stop halts all triggers.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

func (s *Service) stopLocked() {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
	if s.correction != nil {
		s.correction.Stop()
		s.correction = nil
	}
	s.running = false
}

// NextRunTime computes the next firing instant after now.
func (s *Service) NextRunTime(now time.Time) (time.Time, error) {
	cfg, err := s.schedule(context.Background())
	if err != nil {
		return time.Time{}, err
	}
	return nextRunTime(now, cfg.Hour, cfg.Minute, cfg.Timezone)
}

// UpdateSchedule validates and persists a new daily time, then restarts
// the triggers. A retarget landing within five minutes additionally arms a
// precise one-shot timer.
func (s *Service) UpdateSchedule(hour, minute int) error {
	if err := validateScheduleTime(hour, minute); err != nil {
		return err
	}

	ctx := context.Background()
	cfg, err := s.schedule(ctx)
	if err != nil {
		return err
	}
	cfg.Hour = hour
	cfg.Minute = minute
	if err := s.configStore.SaveSchedule(ctx, cfg); err != nil {
		return fmt.Errorf("failed to persist schedule: %w", err)
	}

	if err := s.Start(); err != nil {
		return err
	}

	now := time.Now()
	next, err := nextRunTime(now, cfg.Hour, cfg.Minute, cfg.Timezone)
	if err != nil {
		return err
	}
	if delta := next.Sub(now); delta <= nearTermWindow {
		s.mu.Lock()
		if s.correction != nil {
			s.correction.Stop()
		}
		s.correction = time.AfterFunc(delta, s.runDailyBatch)
		s.mu.Unlock()
		s.logger.Info().
			Dur("fires_in", delta).
			Msg("Schedule retarget is near-term, armed one-shot correction timer")
	}

	s.logger.Info().
		Int("hour", hour).
		Int("minute", minute).
		Str("timezone", cfg.Timezone).
		Str("next_run", next.Format(time.RFC3339)).
		Msg("Schedule updated")

	s.publishEvent(interfaces.EventScheduleUpdated, cfg)
	return nil
}

// Status reports the observable scheduler state.
func (s *Service) Status() (*interfaces.SchedulerStatus, error) {
	ctx := context.Background()
	cfg, err := s.schedule(ctx)
	if err != nil {
		return nil, err
	}
	pause, err := s.configStore.GetPauseConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pause config: %w", err)
	}

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	status := &interfaces.SchedulerStatus{
		Running:  running,
		Schedule: cfg,
		Pause:    pause,
	}
	if next, err := nextRunTime(time.Now(), cfg.Hour, cfg.Minute, cfg.Timezone); err == nil {
		status.NextRun = &next
	}
	return status, nil
}

// runDailyBatch fires once per scheduled occurrence: re-checks the pause
// rules for today, resyncs accounts from the spreadsheet, then enqueues
// one job per active account under a fresh batch. A near-term retarget
// arms both the cron entry and a one-shot correction timer for the same
// occurrence, so firings inside the same minute are deduplicated.
func (s *Service) runDailyBatch() {
	occurrence := time.Now().Truncate(time.Minute)
	s.mu.Lock()
	if occurrence.Equal(s.lastFired) {
		s.mu.Unlock()
		s.logger.Debug().
			Str("occurrence", occurrence.Format(time.RFC3339)).
			Msg("Duplicate trigger for the same occurrence suppressed")
		return
	}
	s.lastFired = occurrence
	s.mu.Unlock()

	ctx := context.Background()

	cfg, err := s.schedule(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled firing aborted, schedule unavailable")
		return
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	today := time.Now().In(loc)

	if s.IsPausedForDate(today) {
		s.logger.Info().
			Str("date", today.Format(models.DateLayout)).
			Msg("Scheduled firing skipped, date is paused")
		return
	}

	if s.sheet != nil {
		if n, err := s.sheet.SyncAccounts(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Account resync from spreadsheet failed, using stored accounts")
		} else {
			s.logger.Info().Int("accounts", n).Msg("Accounts resynced from spreadsheet")
		}
	}

	active, err := s.accounts.ListActive(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled firing aborted, account listing failed")
		return
	}

	s.notify(ctx, "Scheduled batch starting", fmt.Sprintf("Logging in %d active accounts", len(active)), models.NotifyKindInfo)

	batchID := s.queue.StartBatch(len(active))
	for _, account := range active {
		s.queue.Enqueue(&models.Job{
			ID:        common.NewJobID(),
			AccountID: account.ID,
			BatchID:   batchID,
			CreatedAt: time.Now(),
		})
	}

	s.logger.Info().
		Str("batch_id", batchID).
		Int("accounts", len(active)).
		Msg("Scheduled batch enqueued")
}

// runStatusCheck is the secondary daily trigger: a heartbeat that reports
// the scheduler is alive and when the next batch fires.
func (s *Service) runStatusCheck() {
	next, err := s.NextRunTime(time.Now())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Status check could not compute next run")
		return
	}
	s.logger.Info().Str("next_run", next.Format(time.RFC3339)).Msg("Scheduler status check")
	s.notify(context.Background(), "Scheduler status", fmt.Sprintf("Next batch at %s", next.Format(time.RFC3339)), models.NotifyKindInfo)
}

func (s *Service) notify(ctx context.Context, title, message string, kind models.NotifyKind) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, title, message, kind, ""); err != nil {
		s.logger.Warn().Err(err).Msg("Scheduler notification failed")
	}
}

func (s *Service) publishEvent(eventType interfaces.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(context.Background(), interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Event publish failed")
	}
}

func validateScheduleTime(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("hour must be between 0 and 23, got %d", hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("minute must be between 0 and 59, got %d", minute)
	}
	return nil
}

// cronExpr renders a timezone-aware daily expression for robfig/cron.
func cronExpr(hour, minute int, tz string) string {
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", tz, minute, hour)
}
