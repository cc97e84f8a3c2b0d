// -----------------------------------------------------------------------
// Batch Coordinator - aggregates per-account outcomes into one summary
// -----------------------------------------------------------------------

package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/models"
)

// batchState is one in-flight aggregate. All mutation happens under the
// queue mutex; the aggregate is removed from the map the instant it
// finalizes so a summary can never be emitted twice.
type batchState struct {
	id              string
	expected        int
	startedAt       time.Time
	outcomes        []models.BatchOutcome
	skippedInactive []string
}

func (b *batchState) progress() models.BatchProgress {
	p := models.BatchProgress{
		BatchID:   b.id,
		Completed: len(b.outcomes) + len(b.skippedInactive),
		Total:     b.expected + len(b.skippedInactive),
	}
	if p.Total > 0 {
		p.Percent = float64(p.Completed) / float64(p.Total) * 100
	}
	return p
}

func (b *batchState) summary() *models.BatchSummary {
	s := &models.BatchSummary{
		BatchID:         b.id,
		StartedAt:       b.startedAt,
		FinishedAt:      time.Now(),
		SkippedInactive: b.skippedInactive,
		Outcomes:        b.outcomes,
	}
	for _, o := range b.outcomes {
		if o.Status == models.RunStatusSuccess {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// StartBatch registers a new aggregate expecting expectedCount outcomes
// and returns its generated identifier. A batch that starts with nothing
// to wait for finalizes immediately with an empty summary.
func (m *Manager) StartBatch(expectedCount int) string {
	batch := &batchState{
		id:        common.NewBatchID(),
		expected:  expectedCount,
		startedAt: time.Now(),
	}

	var summary *models.BatchSummary
	m.mu.Lock()
	if expectedCount > 0 {
		m.batches[batch.id] = batch
	} else {
		summary = batch.summary()
	}
	m.mu.Unlock()

	m.logger.Info().
		Str("batch_id", batch.id).
		Int("expected", expectedCount).
		Msg("Batch started")

	m.publishEvent(interfaces.EventBatchStarted, models.BatchProgress{
		BatchID: batch.id,
		Total:   expectedCount,
	})
	if summary != nil {
		m.emitBatchSummary(summary)
	}
	return batch.id
}

// BatchProgress reports completed/total for an active batch. The second
// return is false once the batch has finalized or never existed.
func (m *Manager) BatchProgress(batchID string) (*models.BatchProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch, ok := m.batches[batchID]
	if !ok {
		return nil, false
	}
	p := batch.progress()
	return &p, true
}

// recordOutcome appends one completed outcome and returns the summary when
// that completion finalizes the batch, nil otherwise.
func (m *Manager) recordOutcome(batchID string, outcome models.BatchOutcome) *models.BatchSummary {
	m.mu.Lock()
	batch, ok := m.batches[batchID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	batch.outcomes = append(batch.outcomes, outcome)
	progress := batch.progress()
	summary := m.maybeFinalizeLocked(batch)
	m.mu.Unlock()

	m.publishEvent(interfaces.EventBatchProgress, progress)
	return summary
}

// accountUnavailable accounts for a job that produced no RunLog because
// its account was missing or inactive. Inactive accounts are reported by
// name in the batch summary.
func (m *Manager) accountUnavailable(batchID, inactiveName string) *models.BatchSummary {
	if batchID == "" {
		return nil
	}

	m.mu.Lock()
	batch, ok := m.batches[batchID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	batch.expected--
	if inactiveName != "" {
		batch.skippedInactive = append(batch.skippedInactive, inactiveName)
	}
	progress := batch.progress()
	summary := m.maybeFinalizeLocked(batch)
	m.mu.Unlock()

	m.publishEvent(interfaces.EventBatchProgress, progress)
	return summary
}

// dropFromBatchLocked adjusts a batch for a duplicate submission that was
// dropped before admission. Caller holds the queue mutex.
func (m *Manager) dropFromBatchLocked(batchID string) *models.BatchSummary {
	if batchID == "" {
		return nil
	}
	batch, ok := m.batches[batchID]
	if !ok {
		return nil
	}
	batch.expected--
	return m.maybeFinalizeLocked(batch)
}

// maybeFinalizeLocked checks the completion condition and, when met,
// removes the aggregate and returns its summary. Caller holds the queue
// mutex and must emit the summary after releasing it.
func (m *Manager) maybeFinalizeLocked(batch *batchState) *models.BatchSummary {
	if len(batch.outcomes) < batch.expected {
		return nil
	}
	delete(m.batches, batch.id)
	return batch.summary()
}

// emitBatchSummary sends the one-and-only summary notification and event
// for a finalized batch.
func (m *Manager) emitBatchSummary(summary *models.BatchSummary) {
	m.logger.Info().
		Str("batch_id", summary.BatchID).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped_inactive", len(summary.SkippedInactive)).
		Msg("Batch completed")

	if m.notifier != nil {
		message := fmt.Sprintf("%d succeeded, %d failed", summary.Succeeded, summary.Failed)
		if len(summary.SkippedInactive) > 0 {
			message = fmt.Sprintf("%s, %d inactive skipped", message, len(summary.SkippedInactive))
		}
		// The webhook is rate limited and may block; a summary can be
		// emitted from the Enqueue path, so it must not stall the caller.
		common.SafeGo(m.logger, "batch-summary-notify", func() {
			if err := m.notifier.Notify(context.Background(), "Batch complete", message, models.NotifyKindSummary, ""); err != nil {
				m.logger.Warn().Err(err).Str("batch_id", summary.BatchID).Msg("Batch summary notification failed")
			}
		})
	}

	m.publishEvent(interfaces.EventBatchCompleted, summary)
}
