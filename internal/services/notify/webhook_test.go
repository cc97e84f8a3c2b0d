package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/models"
)

func TestNotifyPostsJSON(t *testing.T) {
	var received webhookPayload
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	n := NewWebhookNotifier(common.NotifyConfig{WebhookURL: srv.URL, RateLimit: "1ms"}, common.GetLogger())
	err := n.Notify(context.Background(), "Login failed", "alpha: field not found", models.NotifyKindFailure, "https://broker.example/login")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "Login failed", received.Title)
	assert.Equal(t, models.NotifyKindFailure, received.Kind)
	assert.Equal(t, "https://broker.example/login", received.Link)
	assert.False(t, received.Timestamp.IsZero())
}

func TestNotifyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	n := NewWebhookNotifier(common.NotifyConfig{WebhookURL: srv.URL, RateLimit: "1ms"}, common.GetLogger())
	err := n.Notify(context.Background(), "t", "m", models.NotifyKindInfo, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNotifyDisabledWithoutURL(t *testing.T) {
	n := NewWebhookNotifier(common.NotifyConfig{}, common.GetLogger())
	assert.NoError(t, n.Notify(context.Background(), "t", "m", models.NotifyKindInfo, ""))
}
