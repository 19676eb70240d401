package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/snapwatch/snapwatch/internal/errors"
	"github.com/snapwatch/snapwatch/internal/logging"
)

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType string) error {
	migrationStart := time.Now()
	log := logging.ForService("datastore").With("db_type", dbType)

	tableMappings := []struct {
		model any
		name  string
	}{
		{&DetectionEvent{}, "detection_events"},
		{&AiPrediction{}, "ai_predictions"},
		{&DetectionProfile{}, "detection_profiles"},
		{&ProfileMatch{}, "profile_matches"},
		{&PatternMatch{}, "pattern_matches"},
		{&TelegramConfig{}, "telegram_configs"},
		{&WebhookConfig{}, "webhook_configs"},
		{&ProfileTelegramSubscription{}, "profile_telegram_subscriptions"},
		{&ProfileWebhookSubscription{}, "profile_webhook_subscriptions"},
	}

	for _, table := range tableMappings {
		tableStart := time.Now()
		if err := db.AutoMigrate(table.model); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("operation", "auto_migrate").
				Context("table", table.name).
				Context("db_type", dbType).
				Build()
		}
		if debug {
			log.Debug("table migrated",
				"table", table.name,
				"duration", time.Since(tableStart))
		}
	}

	log.Debug("database migration completed",
		"tables", len(tableMappings),
		"duration", time.Since(migrationStart))
	return nil
}
