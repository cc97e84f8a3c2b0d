package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/models"
)

type fakeConfigStore struct {
	mu    sync.Mutex
	sched *models.ScheduleConfig
	pause *models.PauseConfig
}

func (f *fakeConfigStore) GetSchedule(_ context.Context) (*models.ScheduleConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sched, nil
}

func (f *fakeConfigStore) SaveSchedule(_ context.Context, cfg *models.ScheduleConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sched = cfg
	return nil
}

func (f *fakeConfigStore) GetPauseConfig(_ context.Context) (*models.PauseConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pause == nil {
		return &models.PauseConfig{}, nil
	}
	return f.pause, nil
}

func (f *fakeConfigStore) SavePauseConfig(_ context.Context, cfg *models.PauseConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pause = cfg
	return nil
}

type fakeQueue struct {
	mu       sync.Mutex
	batches  []int
	enqueued []*models.Job
}

func (f *fakeQueue) Enqueue(job *models.Job) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, job)
	return true
}

func (f *fakeQueue) StartBatch(expectedCount int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, expectedCount)
	return common.NewBatchID()
}

func (f *fakeQueue) BatchProgress(string) (*models.BatchProgress, bool) { return nil, false }

func (f *fakeQueue) Stats() models.QueueStats { return models.QueueStats{} }

func (f *fakeQueue) Shutdown(time.Duration) {}

type fakeAccounts struct {
	active []*models.Account
}

func (f *fakeAccounts) ListActive(_ context.Context) ([]*models.Account, error) {
	return f.active, nil
}

func (f *fakeAccounts) List(ctx context.Context) ([]*models.Account, error) {
	return f.active, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	for _, a := range f.active {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) GetByName(_ context.Context, _ string) (*models.Account, error) {
	return nil, nil
}

func (f *fakeAccounts) Save(_ context.Context, _ *models.Account) error { return nil }

func (f *fakeAccounts) Count(_ context.Context) (int, error) { return len(f.active), nil }

func newTestService(store *fakeConfigStore, queue *fakeQueue, accounts *fakeAccounts) *Service {
	seed := common.SchedulerConfig{
		Hour: 8, Minute: 30, Timezone: "Asia/Kolkata",
		StatusCheckHour: 18, StatusCheckMinute: 0,
	}
	return NewService(seed, store, queue, accounts, nil, nil, nil, common.GetLogger())
}

func TestScheduleSeedsEmptyStore(t *testing.T) {
	store := &fakeConfigStore{}
	s := newTestService(store, &fakeQueue{}, &fakeAccounts{})

	cfg, err := s.schedule(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Hour)
	assert.Equal(t, 30, cfg.Minute)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)

	// Seed was persisted
	assert.NotNil(t, store.sched)
}

func TestSchedulePersistedValueWins(t *testing.T) {
	store := &fakeConfigStore{sched: &models.ScheduleConfig{Hour: 6, Minute: 15, Timezone: "UTC"}}
	s := newTestService(store, &fakeQueue{}, &fakeAccounts{})

	cfg, err := s.schedule(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Hour)
	assert.Equal(t, 15, cfg.Minute)
}

func TestUpdateScheduleRejectsInvalidTimes(t *testing.T) {
	store := &fakeConfigStore{}
	s := newTestService(store, &fakeQueue{}, &fakeAccounts{})

	assert.Error(t, s.UpdateSchedule(24, 0))
	assert.Error(t, s.UpdateSchedule(-1, 30))
	assert.Error(t, s.UpdateSchedule(8, 61))

	// Nothing was persisted by the rejected updates.
	assert.Nil(t, store.sched)
}

func TestUpdateSchedulePersistsAndRestarts(t *testing.T) {
	store := &fakeConfigStore{}
	s := newTestService(store, &fakeQueue{}, &fakeAccounts{})
	defer s.Stop()

	require.NoError(t, s.UpdateSchedule(9, 45))

	require.NotNil(t, store.sched)
	assert.Equal(t, 9, store.sched.Hour)
	assert.Equal(t, 45, store.sched.Minute)

	status, err := s.Status()
	require.NoError(t, err)
	assert.True(t, status.Running)
	require.NotNil(t, status.NextRun)
	assert.Equal(t, 9, status.NextRun.In(mustLoc(t, "Asia/Kolkata")).Hour())
}

func TestStartIsIdempotent(t *testing.T) {
	s := newTestService(&fakeConfigStore{}, &fakeQueue{}, &fakeAccounts{})
	defer s.Stop()

	require.NoError(t, s.Start())
	first := s.cron
	require.NoError(t, s.Start())

	assert.NotSame(t, first, s.cron, "restart replaces the prior cron instance")
	status, err := s.Status()
	require.NoError(t, err)
	assert.True(t, status.Running)
}

func TestPauseValidation(t *testing.T) {
	s := newTestService(&fakeConfigStore{}, &fakeQueue{}, &fakeAccounts{})
	ctx := context.Background()

	assert.Error(t, s.Pause(ctx, nil))
	assert.Error(t, s.Pause(ctx, &models.PauseConfig{Paused: true, PausedUntil: "15-09-2026"}))
	assert.Error(t, s.Pause(ctx, &models.PauseConfig{PausedDates: []string{"not-a-date"}}))

	require.NoError(t, s.Pause(ctx, &models.PauseConfig{Paused: true, PausedUntil: "2026-09-15"}))
	assert.True(t, s.IsPausedForDate(day(t, "2026-09-10")))

	require.NoError(t, s.Resume(ctx))
	assert.False(t, s.IsPausedForDate(day(t, "2026-09-10")))
}

func TestRunDailyBatchSkipsWhenPaused(t *testing.T) {
	queue := &fakeQueue{}
	store := &fakeConfigStore{pause: &models.PauseConfig{Paused: true}}
	s := newTestService(store, queue, &fakeAccounts{active: []*models.Account{{ID: "acct_1", Name: "a", Active: true}}})

	s.runDailyBatch()

	assert.Empty(t, queue.batches, "paused firing must not start a batch")
	assert.Empty(t, queue.enqueued)
}

func TestRunDailyBatchEnqueuesActiveAccounts(t *testing.T) {
	queue := &fakeQueue{}
	accounts := &fakeAccounts{active: []*models.Account{
		{ID: "acct_1", Name: "a", Active: true},
		{ID: "acct_2", Name: "b", Active: true},
	}}
	s := newTestService(&fakeConfigStore{}, queue, accounts)

	s.runDailyBatch()

	require.Len(t, queue.batches, 1)
	assert.Equal(t, 2, queue.batches[0])
	require.Len(t, queue.enqueued, 2)
	assert.Equal(t, queue.enqueued[0].BatchID, queue.enqueued[1].BatchID)
	assert.NotEmpty(t, queue.enqueued[0].BatchID)
}

func TestRunDailyBatchDeduplicatesSameOccurrence(t *testing.T) {
	queue := &fakeQueue{}
	accounts := &fakeAccounts{active: []*models.Account{
		{ID: "acct_1", Name: "a", Active: true},
	}}
	s := newTestService(&fakeConfigStore{}, queue, accounts)

	// A near-term retarget can leave both the cron entry and the one-shot
	// correction timer aimed at the same occurrence; the second firing
	// must not start a second batch.
	s.runDailyBatch()
	s.runDailyBatch()

	require.Len(t, queue.batches, 1, "double trigger for one occurrence starts exactly one batch")
	require.Len(t, queue.enqueued, 1)

	// The guard keys on the occurrence minute, not on having fired once.
	s.mu.Lock()
	s.lastFired = s.lastFired.Add(-time.Minute)
	s.mu.Unlock()
	s.runDailyBatch()

	assert.Len(t, queue.batches, 2, "a later occurrence fires normally")
}
