package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/snapwatch/snapwatch/internal/datastore"
)

// TelegramProvider sends chat messages via shoutrrr's telegram service.
// One provider is built per configured bot.
type TelegramProvider struct {
	name   string
	token  string
	chatID string
	sender *router.ServiceRouter
}

// NewTelegramProvider creates a provider from a stored channel config.
func NewTelegramProvider(config *datastore.TelegramConfig) *TelegramProvider {
	return &TelegramProvider{
		name:   config.Name,
		token:  config.Token,
		chatID: config.ChatID,
	}
}

func (t *TelegramProvider) GetName() string { return t.name }
func (t *TelegramProvider) IsEnabled() bool { return true }

// ValidateConfig builds the shoutrrr sender, which validates the service URL.
func (t *TelegramProvider) ValidateConfig() error {
	if t.token == "" || t.chatID == "" {
		return fmt.Errorf("telegram config requires token and chat id")
	}
	serviceURL := fmt.Sprintf("telegram://%s@telegram?chats=%s",
		url.PathEscape(t.token), url.QueryEscape(t.chatID))
	sender, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return fmt.Errorf("building telegram sender: %w", err)
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	t.sender = sender
	return nil
}

func (t *TelegramProvider) Send(ctx context.Context, message *Message) error {
	if t.sender == nil {
		if err := t.ValidateConfig(); err != nil {
			return &providerError{Err: err, Retryable: false}
		}
	}
	_ = ctx // the router handles its own timeouts

	params := stypes.Params{}
	if message.Title != "" {
		params.SetTitle(message.Title)
	}
	for _, err := range t.sender.Send(message.Body, &params) {
		if err != nil {
			// Chat API failures are typically transient (rate limits, network)
			return &providerError{Err: err, Retryable: true}
		}
	}
	return nil
}
