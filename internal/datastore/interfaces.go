// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"strings"

	"gorm.io/gorm"

	"github.com/snapwatch/snapwatch/internal/conf"
	"github.com/snapwatch/snapwatch/internal/errors"
)

// Interface abstracts the underlying database implementation and defines the
// operations the rest of the application may perform.
type Interface interface {
	Open() error
	Close() error

	// Events
	SaveEvent(event *DetectionEvent, predictions []AiPrediction) error
	GetEvent(id uint) (DetectionEvent, error)
	ListEvents(limit, offset int) ([]EventSummary, int64, error)

	// Profiles
	CreateProfile(profile *DetectionProfile) error
	GetProfile(id uint) (DetectionProfile, error)
	ListProfiles(limit, offset int) ([]DetectionProfile, int64, error)
	GetAllProfiles() ([]DetectionProfile, error)

	// Derived matches
	SaveProfileMatch(match *ProfileMatch) error
	SavePatternMatch(match *PatternMatch) error
	MatchedProfiles(eventID uint) ([]DetectionProfile, error)
	CountMatchedProfiles(eventID uint) (int64, error)

	// Notification channel configs
	CreateTelegramConfig(config *TelegramConfig) error
	GetTelegramConfig(id uint) (TelegramConfig, error)
	ListTelegramConfigs() ([]TelegramConfig, error)
	CreateWebhookConfig(config *WebhookConfig) error
	GetWebhookConfig(id uint) (WebhookConfig, error)
	ListWebhookConfigs() ([]WebhookConfig, error)

	// Subscriptions
	SetTelegramSubscription(profileID, configID uint, active bool) error
	SetWebhookSubscription(profileID, configID uint, active bool) error
	TelegramSubscriptions(profileID uint) ([]TelegramConfig, error)
	WebhookSubscriptions(profileID uint) ([]WebhookConfig, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// dbError wraps a database error with datastore context, preserving the
// not-found category for missing records.
func dbError(err error, operation string) error {
	category := errors.CategoryDatabase
	if errors.Is(err, gorm.ErrRecordNotFound) {
		category = errors.CategoryNotFound
	}
	return errors.New(err).
		Component("datastore").
		Category(category).
		Context("operation", operation).
		Build()
}

// isUniqueViolation reports whether an error comes from a unique constraint.
// Both SQLite and MySQL surface constraint failures as driver errors, so the
// check is textual.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
