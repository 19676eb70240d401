package datastore

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snapwatch/snapwatch/internal/errors"
)

// SetTelegramSubscription attaches or detaches a chat-bot channel for a
// profile. Both directions are idempotent: attach is an insert that does
// nothing on conflict with the composite unique index, detach is a keyed
// delete. Concurrent identical toggles therefore converge on the same row
// count without an existence-check race.
func (ds *DataStore) SetTelegramSubscription(profileID, configID uint, active bool) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := subscriptionTargetsExist(tx, profileID, &TelegramConfig{}, configID, "telegram"); err != nil {
			return err
		}
		if active {
			return attachErr(tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "detection_profile_id"}, {Name: "telegram_config_id"}},
				DoNothing: true,
			}).Create(&ProfileTelegramSubscription{
				DetectionProfileID: profileID,
				TelegramConfigID:   configID,
			}).Error)
		}
		return attachErr(tx.
			Where("detection_profile_id = ? AND telegram_config_id = ?", profileID, configID).
			Delete(&ProfileTelegramSubscription{}).Error)
	})
}

// SetWebhookSubscription attaches or detaches a webhook channel for a
// profile, with the same idempotency guarantees as the telegram variant.
func (ds *DataStore) SetWebhookSubscription(profileID, configID uint, active bool) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := subscriptionTargetsExist(tx, profileID, &WebhookConfig{}, configID, "webhook"); err != nil {
			return err
		}
		if active {
			return attachErr(tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "detection_profile_id"}, {Name: "webhook_config_id"}},
				DoNothing: true,
			}).Create(&ProfileWebhookSubscription{
				DetectionProfileID: profileID,
				WebhookConfigID:    configID,
			}).Error)
		}
		return attachErr(tx.
			Where("detection_profile_id = ? AND webhook_config_id = ?", profileID, configID).
			Delete(&ProfileWebhookSubscription{}).Error)
	})
}

// TelegramSubscriptions returns the chat-bot channels currently subscribed to
// a profile, reflecting exactly the present subscription rows.
func (ds *DataStore) TelegramSubscriptions(profileID uint) ([]TelegramConfig, error) {
	var configs []TelegramConfig
	err := ds.DB.Model(&TelegramConfig{}).
		Joins("JOIN profile_telegram_subscriptions s ON s.telegram_config_id = telegram_configs.id").
		Where("s.detection_profile_id = ?", profileID).
		Order("telegram_configs.id ASC").
		Find(&configs).Error
	if err != nil {
		return nil, dbError(err, "telegram_subscriptions")
	}
	return configs, nil
}

// WebhookSubscriptions returns the webhook channels currently subscribed to a
// profile.
func (ds *DataStore) WebhookSubscriptions(profileID uint) ([]WebhookConfig, error) {
	var configs []WebhookConfig
	err := ds.DB.Model(&WebhookConfig{}).
		Joins("JOIN profile_webhook_subscriptions s ON s.webhook_config_id = webhook_configs.id").
		Where("s.detection_profile_id = ?", profileID).
		Order("webhook_configs.id ASC").
		Find(&configs).Error
	if err != nil {
		return nil, dbError(err, "webhook_subscriptions")
	}
	return configs, nil
}

// subscriptionTargetsExist verifies both sides of the toggle before any
// state change, so invalid requests fail without partial writes.
func subscriptionTargetsExist(tx *gorm.DB, profileID uint, configModel any, configID uint, kind string) error {
	var count int64
	if err := tx.Model(&DetectionProfile{}).Where("id = ?", profileID).Count(&count).Error; err != nil {
		return dbError(err, "subscription_profile_lookup")
	}
	if count == 0 {
		return errors.Newf("profile %d not found", profileID).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("channel_kind", kind).
			Build()
	}
	if err := tx.Model(configModel).Where("id = ?", configID).Count(&count).Error; err != nil {
		return dbError(err, "subscription_config_lookup")
	}
	if count == 0 {
		return errors.Newf("%s config %d not found", kind, configID).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("channel_kind", kind).
			Build()
	}
	return nil
}

func attachErr(err error) error {
	if err != nil {
		return dbError(err, "set_subscription")
	}
	return nil
}
