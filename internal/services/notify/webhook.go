// -----------------------------------------------------------------------
// Notifier - webhook notification sink
// -----------------------------------------------------------------------

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/models"
	"golang.org/x/time/rate"
)

// WebhookNotifier posts notifications as JSON to a configured webhook.
// Calls are rate limited so a burst of per-job notifications cannot flood
// the receiving chat integration. An empty URL disables the sink.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  arbor.ILogger
}

type webhookPayload struct {
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Kind      models.NotifyKind `json:"kind"`
	Link      string            `json:"link,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewWebhookNotifier builds the sink from configuration.
func NewWebhookNotifier(cfg common.NotifyConfig, logger arbor.ILogger) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.WebhookURL,
		client:  &http.Client{Timeout: cfg.TimeoutDuration()},
		limiter: rate.NewLimiter(rate.Every(cfg.RateLimitDuration()), 1),
		logger:  logger,
	}
}

// Notify posts one notification. Callers treat errors as best-effort.
func (n *WebhookNotifier) Notify(ctx context.Context, title, message string, kind models.NotifyKind, link string) error {
	if n.url == "" {
		n.logger.Debug().Str("title", title).Msg("Webhook URL not configured, notification dropped")
		return nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notification rate limit wait aborted: %w", err)
	}

	body, err := json.Marshal(webhookPayload{
		Title:     title,
		Message:   message,
		Kind:      kind,
		Link:      link,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification rejected with status %d", resp.StatusCode)
	}

	n.logger.Debug().
		Str("title", title).
		Str("kind", string(kind)).
		Msg("Notification delivered")
	return nil
}
