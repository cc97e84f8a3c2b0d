package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/interfaces"
	"github.com/ternarybob/aditus/internal/models"
)

// --- fakes ---------------------------------------------------------------

type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func newFakeAccountStore(accounts ...*models.Account) *fakeAccountStore {
	s := &fakeAccountStore{accounts: make(map[string]*models.Account)}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *fakeAccountStore) GetByID(_ context.Context, id string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id], nil
}

func (s *fakeAccountStore) GetByName(_ context.Context, name string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, nil
}

func (s *fakeAccountStore) List(_ context.Context) ([]*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeAccountStore) ListActive(ctx context.Context) ([]*models.Account, error) {
	all, _ := s.List(ctx)
	out := make([]*models.Account, 0, len(all))
	for _, a := range all {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeAccountStore) Save(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
	return nil
}

func (s *fakeAccountStore) Count(ctx context.Context) (int, error) {
	all, _ := s.List(ctx)
	return len(all), nil
}

type fakeRunLogStore struct {
	mu   sync.Mutex
	runs []*models.RunLog
}

func (s *fakeRunLogStore) Append(_ context.Context, run *models.RunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *fakeRunLogStore) List(_ context.Context, _ *interfaces.RunLogListOptions) ([]*models.RunLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.RunLog(nil), s.runs...), nil
}

func (s *fakeRunLogStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs), nil
}

func (s *fakeRunLogStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

type fakeAuthenticator struct {
	mu      sync.Mutex
	calls   []string
	block   chan struct{}
	results map[string]*models.AuthResult
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, account *models.Account, _ bool) (*models.AuthResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, account.ID)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if r, ok := f.results[account.ID]; ok {
		return r, nil
	}
	return &models.AuthResult{Status: models.RunStatusSuccess, Message: "token issued", TokenIssued: true}, nil
}

func (f *fakeAuthenticator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNotifier struct {
	mu    sync.Mutex
	kinds []models.NotifyKind
}

func (f *fakeNotifier) Notify(_ context.Context, _, _ string, kind models.NotifyKind, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
	return nil
}

func (f *fakeNotifier) countKind(kind models.NotifyKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

// --- helpers -------------------------------------------------------------

func testAccount(name string, active bool) *models.Account {
	return &models.Account{
		ID:     common.NewAccountID(),
		Name:   name,
		Active: active,
	}
}

func newTestManager(t *testing.T, concurrency int, auth *fakeAuthenticator, accounts *fakeAccountStore) (*Manager, *fakeRunLogStore, *fakeNotifier) {
	t.Helper()
	runs := &fakeRunLogStore{}
	notifier := &fakeNotifier{}
	m := NewManager(
		common.QueueConfig{Concurrency: concurrency, Cooldown: "1ms"},
		accounts, runs, auth, notifier, nil, nil,
		common.GetLogger(),
	)
	t.Cleanup(func() { m.Shutdown(2 * time.Second) })
	return m, runs, notifier
}

// --- tests ---------------------------------------------------------------

func TestEnqueueDropsDuplicateAccount(t *testing.T) {
	account := testAccount("alpha", true)
	auth := &fakeAuthenticator{block: make(chan struct{})}
	m, runs, _ := newTestManager(t, 2, auth, newFakeAccountStore(account))

	require.True(t, m.Enqueue(&models.Job{AccountID: account.ID}))

	// Wait for admission, then submit duplicates while the first runs.
	require.Eventually(t, func() bool { return auth.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, m.Enqueue(&models.Job{AccountID: account.ID}))
	assert.False(t, m.Enqueue(&models.Job{AccountID: account.ID}))

	close(auth.block)
	require.Eventually(t, func() bool { return runs.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Only the admitted job authenticated and only one RunLog exists.
	assert.Equal(t, 1, auth.callCount())
}

func TestConcurrencyBoundHonored(t *testing.T) {
	auth := &fakeAuthenticator{block: make(chan struct{})}
	accounts := []*models.Account{
		testAccount("a", true), testAccount("b", true),
		testAccount("c", true), testAccount("d", true),
	}
	m, runs, _ := newTestManager(t, 2, auth, newFakeAccountStore(accounts...))

	for _, a := range accounts {
		require.True(t, m.Enqueue(&models.Job{AccountID: a.ID}))
	}

	require.Eventually(t, func() bool { return auth.callCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	stats := m.Stats()
	assert.Equal(t, 2, stats.Running)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 2, stats.Concurrency)

	// No third admission while both slots are held.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, auth.callCount())

	close(auth.block)
	require.Eventually(t, func() bool { return runs.count() == 4 }, 3*time.Second, 5*time.Millisecond)
}

func TestBatchFinalizesExactlyOnce(t *testing.T) {
	good1 := testAccount("good-1", true)
	good2 := testAccount("good-2", true)
	bad := testAccount("bad", true)
	auth := &fakeAuthenticator{results: map[string]*models.AuthResult{
		bad.ID: {Status: models.RunStatusFail, Message: "login outcome could not be verified"},
	}}
	m, runs, notifier := newTestManager(t, 3, auth, newFakeAccountStore(good1, good2, bad))

	batchID := m.StartBatch(3)
	require.NotEmpty(t, batchID)
	for _, a := range []*models.Account{good1, good2, bad} {
		require.True(t, m.Enqueue(&models.Job{AccountID: a.ID, BatchID: batchID}))
	}

	require.Eventually(t, func() bool {
		return notifier.countKind(models.NotifyKindSummary) == 1
	}, 3*time.Second, 5*time.Millisecond)

	assert.Equal(t, 3, runs.count())

	// Aggregate is gone once finalized.
	_, ok := m.BatchProgress(batchID)
	assert.False(t, ok)

	// Per-run notifications are deferred into the summary for batch jobs.
	assert.Zero(t, notifier.countKind(models.NotifyKindSuccess))
	assert.Zero(t, notifier.countKind(models.NotifyKindFailure))

	// Nothing further can re-finalize it.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, notifier.countKind(models.NotifyKindSummary))
}

func TestBatchAccountsForInactiveSkips(t *testing.T) {
	active := testAccount("active", true)
	inactive := testAccount("dormant", false)
	auth := &fakeAuthenticator{}
	m, runs, notifier := newTestManager(t, 2, auth, newFakeAccountStore(active, inactive))

	batchID := m.StartBatch(2)
	require.True(t, m.Enqueue(&models.Job{AccountID: active.ID, BatchID: batchID}))
	require.True(t, m.Enqueue(&models.Job{AccountID: inactive.ID, BatchID: batchID}))

	require.Eventually(t, func() bool {
		return notifier.countKind(models.NotifyKindSummary) == 1
	}, 3*time.Second, 5*time.Millisecond)

	// The inactive account never produced a RunLog.
	assert.Equal(t, 1, runs.count())
	assert.Equal(t, 1, auth.callCount())
}

func TestZeroExpectedBatchFinalizesImmediately(t *testing.T) {
	auth := &fakeAuthenticator{}
	m, _, notifier := newTestManager(t, 1, auth, newFakeAccountStore())

	batchID := m.StartBatch(0)
	require.NotEmpty(t, batchID)

	require.Eventually(t, func() bool {
		return notifier.countKind(models.NotifyKindSummary) == 1
	}, 2*time.Second, 5*time.Millisecond)
	_, ok := m.BatchProgress(batchID)
	assert.False(t, ok)
}

func TestMissingAccountProducesNoRunLog(t *testing.T) {
	auth := &fakeAuthenticator{}
	m, runs, notifier := newTestManager(t, 1, auth, newFakeAccountStore())

	batchID := m.StartBatch(1)
	require.True(t, m.Enqueue(&models.Job{AccountID: "acct_ghost", BatchID: batchID}))

	require.Eventually(t, func() bool {
		return notifier.countKind(models.NotifyKindSummary) == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Zero(t, runs.count())
	assert.Zero(t, auth.callCount())
}

func TestNonBatchJobNotifiesIndividually(t *testing.T) {
	account := testAccount("solo", true)
	auth := &fakeAuthenticator{}
	m, runs, notifier := newTestManager(t, 1, auth, newFakeAccountStore(account))

	require.True(t, m.Enqueue(&models.Job{AccountID: account.ID}))

	require.Eventually(t, func() bool { return runs.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return notifier.countKind(models.NotifyKindSuccess) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEnqueueRejectedAfterShutdown(t *testing.T) {
	account := testAccount("late", true)
	auth := &fakeAuthenticator{}
	m, _, _ := newTestManager(t, 1, auth, newFakeAccountStore(account))

	m.Shutdown(time.Second)
	assert.False(t, m.Enqueue(&models.Job{AccountID: account.ID}))
}
