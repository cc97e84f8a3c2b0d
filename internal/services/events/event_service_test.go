package events

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/interfaces"
)

func TestPublishReachesSubscribers(t *testing.T) {
	svc := NewService(common.GetLogger())
	t.Cleanup(func() { svc.Close() })

	var calls int32
	handler := func(_ context.Context, event interfaces.Event) error {
		assert.Equal(t, interfaces.EventJobCompleted, event.Type)
		atomic.AddInt32(&calls, 1)
		return nil
	}
	require.NoError(t, svc.Subscribe(interfaces.EventJobCompleted, handler))

	require.NoError(t, svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventJobCompleted}))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPublishIgnoresOtherTypes(t *testing.T) {
	svc := NewService(common.GetLogger())
	t.Cleanup(func() { svc.Close() })

	var calls int32
	require.NoError(t, svc.Subscribe(interfaces.EventBatchStarted, func(context.Context, interfaces.Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	require.NoError(t, svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventJobStarted}))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestPublishSyncCollectsHandlerErrors(t *testing.T) {
	svc := NewService(common.GetLogger())
	t.Cleanup(func() { svc.Close() })

	require.NoError(t, svc.Subscribe(interfaces.EventBatchCompleted, func(context.Context, interfaces.Event) error {
		return fmt.Errorf("boom")
	}))
	require.NoError(t, svc.Subscribe(interfaces.EventBatchCompleted, func(context.Context, interfaces.Event) error {
		return nil
	}))

	err := svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventBatchCompleted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 errors")
}

func TestSubscribeNilHandlerRejected(t *testing.T) {
	svc := NewService(common.GetLogger())
	t.Cleanup(func() { svc.Close() })
	assert.Error(t, svc.Subscribe(interfaces.EventJobStarted, nil))
}

func TestUnsubscribeByIdentity(t *testing.T) {
	svc := NewService(common.GetLogger())
	t.Cleanup(func() { svc.Close() })

	var calls int32
	handler := func(context.Context, interfaces.Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	require.NoError(t, svc.Subscribe(interfaces.EventPauseChanged, handler))
	require.NoError(t, svc.Unsubscribe(interfaces.EventPauseChanged, handler))

	require.NoError(t, svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventPauseChanged}))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&calls))

	assert.Error(t, svc.Unsubscribe(interfaces.EventPauseChanged, handler))
}

func TestCloseRejectsNewSubscriptions(t *testing.T) {
	svc := NewService(common.GetLogger())
	require.NoError(t, svc.Close())
	assert.Error(t, svc.Subscribe(interfaces.EventJobStarted, func(context.Context, interfaces.Event) error { return nil }))
}
