// Package notification delivers matched-event alerts to subscribed channels.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is a rendered notification for a single matched profile. One
// message may fan out to several channels.
type Message struct {
	ID            string
	EventID       uint
	ImageFileName string
	ProfileName   string
	Title         string
	Body          string
	Timestamp     time.Time
}

// NewMessage creates a message with a fresh ID and timestamp.
func NewMessage(eventID uint, imageFileName, profileName string) *Message {
	return &Message{
		ID:            uuid.New().String(),
		EventID:       eventID,
		ImageFileName: imageFileName,
		ProfileName:   profileName,
		Timestamp:     time.Now(),
	}
}

// Provider defines a push delivery backend. Implementations must be safe for
// concurrent use.
type Provider interface {
	GetName() string
	ValidateConfig() error
	Send(ctx context.Context, message *Message) error
	IsEnabled() bool
}

// providerError lets providers mark send failures as retryable or terminal.
type providerError struct {
	Err       error
	Retryable bool
}

func (e *providerError) Error() string { return e.Err.Error() }
func (e *providerError) Unwrap() error { return e.Err }
