package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/snapwatch/snapwatch/internal/datastore"
	"github.com/snapwatch/snapwatch/internal/errors"
)

const (
	// maxErrorBodySize limits error response body reading
	maxErrorBodySize = 1024

	defaultWebhookTimeout = 30 * time.Second
)

// webhookPayload is the JSON body POSTed to webhook endpoints.
type webhookPayload struct {
	ID            string `json:"id"`
	EventID       uint   `json:"event_id"`
	ImageFileName string `json:"image_file_name"`
	Profile       string `json:"profile"`
	Title         string `json:"title"`
	Message       string `json:"message"`
	Timestamp     string `json:"timestamp"`
}

// WebhookProvider POSTs notifications as JSON to a configured HTTP endpoint.
// Safe for concurrent use.
type WebhookProvider struct {
	name   string
	url    string
	client *http.Client
}

// NewWebhookProvider creates a provider from a stored channel config.
func NewWebhookProvider(config *datastore.WebhookConfig) *WebhookProvider {
	return &WebhookProvider{
		name:   config.Name,
		url:    config.URL,
		client: &http.Client{Timeout: defaultWebhookTimeout},
	}
}

func (w *WebhookProvider) GetName() string { return w.name }
func (w *WebhookProvider) IsEnabled() bool { return true }

func (w *WebhookProvider) ValidateConfig() error {
	u, err := url.Parse(w.url)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("webhook URL host is required")
	}
	return nil
}

// Send delivers the message. Network failures, timeouts and 5xx responses are
// retryable; 4xx responses are terminal since a retry would fail the same way.
func (w *WebhookProvider) Send(ctx context.Context, message *Message) error {
	payload, err := json.Marshal(webhookPayload{
		ID:            message.ID,
		EventID:       message.EventID,
		ImageFileName: message.ImageFileName,
		Profile:       message.ProfileName,
		Title:         message.Title,
		Message:       message.Body,
		Timestamp:     message.Timestamp.Format(time.RFC3339),
	})
	if err != nil {
		return &providerError{Err: fmt.Errorf("building webhook payload: %w", err), Retryable: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return &providerError{Err: fmt.Errorf("creating request: %w", err), Retryable: false}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return &providerError{Err: fmt.Errorf("request cancelled: %w", err), Retryable: false}
		}
		return &providerError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		httpErr := fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
		return &providerError{Err: httpErr, Retryable: resp.StatusCode >= 500}
	}
	return nil
}
