package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/aditus/internal/models"
)

// Authenticator drives one browser session through the broker login flow.
type Authenticator interface {
	Authenticate(ctx context.Context, account *models.Account, headful bool) (*models.AuthResult, error)
}

// Notifier is the external notification sink. Calls are best-effort: the
// caller logs failures and never propagates them.
type Notifier interface {
	Notify(ctx context.Context, title, message string, kind models.NotifyKind, link string) error
}

// Spreadsheet is the external spreadsheet collaborator.
type Spreadsheet interface {
	// SyncAccounts re-reads the account sheet and upserts the account store.
	// Returns the number of accounts synced.
	SyncAccounts(ctx context.Context) (int, error)

	// WriteBackResult appends one run's outcome to the result sheet.
	WriteBackResult(ctx context.Context, run *models.RunLog) error
}

// JobQueue accepts authentication jobs and runs them under a concurrency
// bound with per-account mutual exclusion.
type JobQueue interface {
	// Enqueue submits a job. Returns false when the job was dropped because
	// another job for the same account is already pending or running.
	Enqueue(job *models.Job) bool

	// StartBatch registers a batch aggregate expecting expectedCount
	// outcomes and returns its generated identifier.
	StartBatch(expectedCount int) string

	// BatchProgress reports completed/total for an active batch.
	BatchProgress(batchID string) (*models.BatchProgress, bool)

	Stats() models.QueueStats

	// Shutdown stops admission and waits for running jobs up to the timeout.
	Shutdown(timeout time.Duration)
}

// SchedulerStatus is the observable scheduler state.
type SchedulerStatus struct {
	Running  bool                   `json:"running"`
	Schedule *models.ScheduleConfig `json:"schedule"`
	Pause    *models.PauseConfig    `json:"pause"`
	NextRun  *time.Time             `json:"next_run,omitempty"`
}

// SchedulerService maintains the recurring daily trigger.
type SchedulerService interface {
	Start() error
	Stop() error
	NextRunTime(now time.Time) (time.Time, error)
	UpdateSchedule(hour, minute int) error
	Pause(ctx context.Context, cfg *models.PauseConfig) error
	Resume(ctx context.Context) error
	IsPausedForDate(date time.Time) bool
	Status() (*SchedulerStatus, error)
}
