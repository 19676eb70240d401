// model.go this code defines the data model for the application
package datastore

import (
	"strings"
	"time"
	"unicode"

	"gorm.io/datatypes"
)

// DetectionEvent represents one image submission with its raw classifier output.
// Immutable once created; derived match rows reference it.
type DetectionEvent struct {
	ID                 uint   `gorm:"primaryKey"`
	ImageFileName      string `gorm:"index:idx_events_filename;not null"`
	ClassifierResponse datatypes.JSON // raw prediction payload, parsed on demand
	ImageWidth         int
	ImageHeight        int
	OccurredAt         time.Time      `gorm:"index:idx_events_occurred_at"`
	CreatedAt          time.Time
	Predictions        []AiPrediction `gorm:"foreignKey:DetectionEventID;constraint:OnDelete:CASCADE"`
}

// AiPrediction is one labeled, confidence-scored detection within an event.
type AiPrediction struct {
	ID               uint   `gorm:"primaryKey"`
	DetectionEventID uint   `gorm:"index;not null"`
	ObjectClass      string `gorm:"index;not null"`
	Confidence       float64
	XMin             int
	YMin             int
	XMax             int
	YMax             int
	ProfileMatches   []ProfileMatch `gorm:"foreignKey:AiPredictionID;constraint:OnDelete:CASCADE"`
}

// DetectionProfile is a named rule set used to decide relevance of events.
type DetectionProfile struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"not null"`
	Slug           string `gorm:"uniqueIndex;not null"` // derived from Name
	FilePattern    string
	UseRegex       bool           // FilePattern is a regular expression when true, substring otherwise
	ObjectClasses  datatypes.JSON // accepted object class labels, e.g. ["car","person"]
	MinConfidence  float64
	UseMask        bool
	MaskRectangles datatypes.JSON // masked regions, e.g. [{"x_min":0,"y_min":0,"x_max":100,"y_max":100}]
	Active         bool           `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfileMatch joins a prediction to a profile it satisfies. One row per
// (prediction, profile) pair, enforced by the composite unique index.
type ProfileMatch struct {
	ID                 uint `gorm:"primaryKey"`
	AiPredictionID     uint `gorm:"uniqueIndex:idx_profile_matches_pair;not null"`
	DetectionProfileID uint `gorm:"uniqueIndex:idx_profile_matches_pair;not null"`
	IsMasked           bool // detection fell inside the profile's mask geometry
	CreatedAt          time.Time
}

// PatternMatch joins an event to a profile whose file pattern matched the
// event's file name, independent of any predictions. One row per
// (event, profile) pair.
type PatternMatch struct {
	ID                 uint `gorm:"primaryKey"`
	DetectionEventID   uint `gorm:"uniqueIndex:idx_pattern_matches_pair;not null"`
	DetectionProfileID uint `gorm:"uniqueIndex:idx_pattern_matches_pair;not null"`
	IsProfileActive    bool // snapshot of the profile's active flag at match time
	CreatedAt          time.Time
}

// TelegramConfig is a chat-bot notification channel.
type TelegramConfig struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Token     string `gorm:"not null"`
	ChatID    string `gorm:"not null"`
	CreatedAt time.Time
}

// WebhookConfig is an HTTP notification channel.
type WebhookConfig struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	URL       string `gorm:"not null"`
	CreatedAt time.Time
}

// ProfileTelegramSubscription subscribes a profile to a telegram channel.
// Row presence is the sole source of truth for fan-out eligibility.
type ProfileTelegramSubscription struct {
	ID                 uint `gorm:"primaryKey"`
	DetectionProfileID uint `gorm:"uniqueIndex:idx_profile_telegram_pair;not null"`
	TelegramConfigID   uint `gorm:"uniqueIndex:idx_profile_telegram_pair;not null"`
	CreatedAt          time.Time
}

// ProfileWebhookSubscription subscribes a profile to a webhook channel.
type ProfileWebhookSubscription struct {
	ID                 uint `gorm:"primaryKey"`
	DetectionProfileID uint `gorm:"uniqueIndex:idx_profile_webhook_pair;not null"`
	WebhookConfigID    uint `gorm:"uniqueIndex:idx_profile_webhook_pair;not null"`
	CreatedAt          time.Time
}

// EventSummary is a list-view projection of a DetectionEvent.
type EventSummary struct {
	ID                     uint      `json:"id"`
	ImageFileName          string    `json:"image_file_name"`
	OccurredAt             time.Time `json:"occurred_at"`
	DetectionProfilesCount int64     `json:"detection_profiles_count"`
}

// Slugify derives the URL-safe slug for a profile name. The derivation is
// deterministic: lowercase, alphanumeric runs joined by single dashes.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
