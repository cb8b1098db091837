package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// WebhookSender delivers notifications as JSON to an arbitrary HTTP endpoint,
// for operators integrating with their own alerting stack.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a WebhookSender for the given endpoint URL.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: senderTimeout},
	}
}

type webhookPayload struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Send posts the notification body as JSON.
func (w *WebhookSender) Send(ctx context.Context, title, message string) error {
	payload := webhookPayload{
		Title:     title,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err := postJSON(ctx, w.client, w.url, payload); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (w *WebhookSender) Name() string {
	return "webhook"
}
