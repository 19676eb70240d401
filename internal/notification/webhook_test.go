package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapwatch/snapwatch/internal/datastore"
	"github.com/snapwatch/snapwatch/internal/errors"
)

func newTestWebhookProvider(t *testing.T, url string) *WebhookProvider {
	t.Helper()

	provider := NewWebhookProvider(&datastore.WebhookConfig{Name: "hook", URL: url})
	httpmock.ActivateNonDefault(provider.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return provider
}

func testMessage() *Message {
	return &Message{
		ID:            "0b5e7a0e-9c21-4f7a-8f35-0f7a4f4f2f10",
		EventID:       7,
		ImageFileName: "front-cam.jpg",
		ProfileName:   "Driveway",
		Title:         "Driveway matched",
		Body:          "Detection event front-cam.jpg matched profile Driveway: car 87%",
		Timestamp:     time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookSendSuccess(t *testing.T) {
	provider := newTestWebhookProvider(t, "https://hooks.example.com/snap")

	var received webhookPayload
	httpmock.RegisterResponder(http.MethodPost, "https://hooks.example.com/snap",
		func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "application/json", req.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(req.Body).Decode(&received))
			return httpmock.NewStringResponse(http.StatusOK, `{"ok":true}`), nil
		})

	require.NoError(t, provider.Send(context.Background(), testMessage()))
	assert.Equal(t, uint(7), received.EventID)
	assert.Equal(t, "Driveway", received.Profile)
	assert.Equal(t, "front-cam.jpg", received.ImageFileName)
	assert.Equal(t, "2026-08-31T12:00:00Z", received.Timestamp)
}

func TestWebhookServerErrorIsRetryable(t *testing.T) {
	provider := newTestWebhookProvider(t, "https://hooks.example.com/snap")
	httpmock.RegisterResponder(http.MethodPost, "https://hooks.example.com/snap",
		httpmock.NewStringResponder(http.StatusBadGateway, "upstream down"))

	err := provider.Send(context.Background(), testMessage())
	require.Error(t, err)

	var perr *providerError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Retryable)
	assert.Contains(t, err.Error(), "status 502")
}

func TestWebhookClientErrorIsTerminal(t *testing.T) {
	provider := newTestWebhookProvider(t, "https://hooks.example.com/snap")
	httpmock.RegisterResponder(http.MethodPost, "https://hooks.example.com/snap",
		httpmock.NewStringResponder(http.StatusNotFound, "no such hook"))

	err := provider.Send(context.Background(), testMessage())
	require.Error(t, err)

	var perr *providerError
	require.True(t, errors.As(err, &perr))
	assert.False(t, perr.Retryable)
}

func TestWebhookNetworkErrorIsRetryable(t *testing.T) {
	provider := newTestWebhookProvider(t, "https://hooks.example.com/snap")
	httpmock.RegisterResponder(http.MethodPost, "https://hooks.example.com/snap",
		httpmock.NewErrorResponder(assert.AnError))

	err := provider.Send(context.Background(), testMessage())
	require.Error(t, err)

	var perr *providerError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Retryable)
}

func TestWebhookValidateConfig(t *testing.T) {
	valid := NewWebhookProvider(&datastore.WebhookConfig{Name: "ok", URL: "https://hooks.example.com/snap"})
	require.NoError(t, valid.ValidateConfig())

	badScheme := NewWebhookProvider(&datastore.WebhookConfig{Name: "bad", URL: "ftp://hooks.example.com"})
	require.Error(t, badScheme.ValidateConfig())

	noHost := NewWebhookProvider(&datastore.WebhookConfig{Name: "bad", URL: "https://"})
	require.Error(t, noHost.ValidateConfig())
}
