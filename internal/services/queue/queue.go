// -----------------------------------------------------------------------
// Job Queue - bounded-concurrency login runner with per-account exclusion
// -----------------------------------------------------------------------

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/models"
)

// Manager runs authentication jobs under a concurrency bound. At most one
// job per account is admitted at a time: duplicates are dropped, never
// queued. Completed outcomes optionally roll up into batch aggregates.
type Manager struct {
	mu               sync.Mutex
	pending          []*models.Job
	pendingByAccount map[string]bool
	running          map[string]bool
	runningCount     int
	batches          map[string]*batchState
	stopped          bool
	done             chan struct{} // closed by Shutdown waiters when drained

	concurrency int
	cooldown    time.Duration

	accounts interfaces.AccountStorage
	runLogs  interfaces.RunLogStorage
	auth     interfaces.Authenticator
	notifier interfaces.Notifier
	sheet    interfaces.Spreadsheet
	events   interfaces.EventService
	logger   arbor.ILogger
}

// NewManager builds the queue. Concurrency below 1 is clamped to 1.
func NewManager(
	cfg common.QueueConfig,
	accounts interfaces.AccountStorage,
	runLogs interfaces.RunLogStorage,
	auth interfaces.Authenticator,
	notifier interfaces.Notifier,
	sheet interfaces.Spreadsheet,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Manager {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Manager{
		pendingByAccount: make(map[string]bool),
		running:          make(map[string]bool),
		batches:          make(map[string]*batchState),
		concurrency:      concurrency,
		cooldown:         cfg.CooldownDuration(),
		accounts:         accounts,
		runLogs:          runLogs,
		auth:             auth,
		notifier:         notifier,
		sheet:            sheet,
		events:           events,
		logger:           logger,
	}
}

// Enqueue submits a job. Returns false when the job is dropped: queue shut
// down, or another job for the same account is already pending or running.
// A batch-member drop still counts against the batch's expected total so
// the batch can finalize.
func (m *Manager) Enqueue(job *models.Job) bool {
	if job == nil || job.AccountID == "" {
		return false
	}
	if job.ID == "" {
		job.ID = common.NewJobID()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	m.mu.Lock()

	if m.stopped {
		m.mu.Unlock()
		return false
	}

	if m.running[job.AccountID] || m.pendingByAccount[job.AccountID] {
		summary := m.dropFromBatchLocked(job.BatchID)
		m.mu.Unlock()
		m.logger.Debug().
			Str("job_id", job.ID).
			Str("account_id", job.AccountID).
			Msg("Duplicate job for account dropped")
		if summary != nil {
			m.emitBatchSummary(summary)
		}
		return false
	}

	m.pending = append(m.pending, job)
	m.pendingByAccount[job.AccountID] = true
	m.drainLocked()
	m.mu.Unlock()

	m.logger.Debug().
		Str("job_id", job.ID).
		Str("account_id", job.AccountID).
		Str("batch_id", job.BatchID).
		Msg("Job enqueued")
	return true
}

// drainLocked admits pending jobs into free pool slots. Callers hold the
// queue lock. Re-entry from concurrent completions is safe because
// admission state changes only under the lock.
func (m *Manager) drainLocked() {
	for !m.stopped && len(m.pending) > 0 && m.runningCount < m.concurrency {
		job := m.pending[0]
		m.pending = m.pending[1:]
		delete(m.pendingByAccount, job.AccountID)
		m.running[job.AccountID] = true
		m.runningCount++
		go m.execute(job)
	}
	if m.stopped && m.runningCount == 0 && m.done != nil {
		close(m.done)
		m.done = nil
	}
}

// execute runs one admitted job, then frees its slot and re-drains after
// the configured cooldown.
func (m *Manager) execute(job *models.Job) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error().
					Str("job_id", job.ID).
					Str("account_id", job.AccountID).
					Str("panic", fmt.Sprint(r)).
					Msg("Job execution panicked")
			}
		}()
		m.runJob(context.Background(), job)
	}()

	m.mu.Lock()
	delete(m.running, job.AccountID)
	m.runningCount--
	m.mu.Unlock()

	if m.cooldown > 0 {
		time.Sleep(m.cooldown)
	}

	m.mu.Lock()
	m.drainLocked()
	m.mu.Unlock()
}

// runJob resolves the account and runs one authentication session,
// producing exactly one RunLog for any real attempt. Missing or inactive
// accounts are no-op completions for batch accounting only.
func (m *Manager) runJob(ctx context.Context, job *models.Job) {
	account, err := m.accounts.GetByID(ctx, job.AccountID)
	if err != nil {
		m.logger.Warn().Err(err).Str("account_id", job.AccountID).Msg("Account lookup failed, job skipped")
	}
	if account == nil {
		if summary := m.accountUnavailable(job.BatchID, ""); summary != nil {
			m.emitBatchSummary(summary)
		}
		return
	}
	if !account.Active {
		m.logger.Info().Str("account", account.Name).Msg("Account inactive, job skipped")
		if summary := m.accountUnavailable(job.BatchID, account.Name); summary != nil {
			m.emitBatchSummary(summary)
		}
		return
	}

	m.publishEvent(interfaces.EventJobStarted, map[string]interface{}{
		"job_id":     job.ID,
		"account_id": account.ID,
		"account":    account.Name,
		"batch_id":   job.BatchID,
	})

	started := time.Now()
	result, err := m.auth.Authenticate(ctx, account, job.Headful)
	finished := time.Now()
	if err != nil {
		result = &models.AuthResult{
			Status:  models.RunStatusFail,
			Message: err.Error(),
		}
	}

	run := &models.RunLog{
		ID:          common.NewRunID(),
		AccountID:   account.ID,
		AccountName: account.Name,
		StartedAt:   started,
		FinishedAt:  finished,
		DurationMs:  finished.Sub(started).Milliseconds(),
		Status:      result.Status,
		Message:     result.Message,
		TokenIssued: result.TokenIssued,
		FinalURL:    result.FinalURL,
		ArtifactDir: result.ArtifactDir,
	}

	// Completion side effects are each best-effort: one failing must not
	// suppress the others or flip the run outcome.
	if err := m.runLogs.Append(ctx, run); err != nil {
		m.logger.Error().Err(err).Str("account", account.Name).Msg("Failed to persist run log")
	}

	if m.sheet != nil {
		if err := m.sheet.WriteBackResult(ctx, run); err != nil {
			m.logger.Warn().Err(err).Str("account", account.Name).Msg("Spreadsheet write-back failed")
		}
	}

	if job.BatchID != "" {
		if summary := m.recordOutcome(job.BatchID, models.BatchOutcome{
			AccountID:   account.ID,
			AccountName: account.Name,
			Status:      run.Status,
			Message:     run.Message,
			DurationMs:  run.DurationMs,
		}); summary != nil {
			m.emitBatchSummary(summary)
		}
	} else {
		m.notifyRun(ctx, run)
	}

	m.publishEvent(interfaces.EventJobCompleted, run)

	m.logger.Info().
		Str("account", account.Name).
		Str("status", string(run.Status)).
		Int64("duration_ms", run.DurationMs).
		Bool("token_issued", run.TokenIssued).
		Msg("Job completed")
}

func (m *Manager) notifyRun(ctx context.Context, run *models.RunLog) {
	if m.notifier == nil {
		return
	}
	kind := models.NotifyKindSuccess
	title := "Login succeeded"
	if run.Status != models.RunStatusSuccess {
		kind = models.NotifyKindFailure
		title = "Login failed"
	}
	if err := m.notifier.Notify(ctx, title, run.AccountName+": "+run.Message, kind, run.FinalURL); err != nil {
		m.logger.Warn().Err(err).Str("account", run.AccountName).Msg("Run notification failed")
	}
}

func (m *Manager) publishEvent(eventType interfaces.EventType, payload interface{}) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(context.Background(), interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		m.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Event publish failed")
	}
}

// Stats reports queue depth, running count, the concurrency bound and
// progress of any active batches.
func (m *Manager) Stats() models.QueueStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := models.QueueStats{
		Pending:     len(m.pending),
		Running:     m.runningCount,
		Concurrency: m.concurrency,
	}
	for _, b := range m.batches {
		stats.Batches = append(stats.Batches, b.progress())
	}
	return stats
}

// Shutdown stops admission, discards pending jobs and waits for running
// jobs up to the timeout.
func (m *Manager) Shutdown(timeout time.Duration) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	dropped := len(m.pending)
	m.pending = nil
	m.pendingByAccount = make(map[string]bool)

	var done chan struct{}
	if m.runningCount > 0 {
		done = make(chan struct{})
		m.done = done
	}
	m.mu.Unlock()

	if dropped > 0 {
		m.logger.Info().Int("dropped", dropped).Msg("Pending jobs discarded on shutdown")
	}
	if done == nil {
		return
	}

	select {
	case <-done:
		m.logger.Info().Msg("Job queue drained")
	case <-time.After(timeout):
		m.logger.Warn().Dur("timeout", timeout).Msg("Job queue shutdown timed out with jobs still running")
	}
}
