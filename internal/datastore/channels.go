package datastore

// CreateTelegramConfig stores a new chat-bot channel configuration.
func (ds *DataStore) CreateTelegramConfig(config *TelegramConfig) error {
	if err := ds.DB.Create(config).Error; err != nil {
		return dbError(err, "create_telegram_config")
	}
	return nil
}

// GetTelegramConfig retrieves a chat-bot channel configuration by id.
func (ds *DataStore) GetTelegramConfig(id uint) (TelegramConfig, error) {
	var config TelegramConfig
	if err := ds.DB.First(&config, id).Error; err != nil {
		return TelegramConfig{}, dbError(err, "get_telegram_config")
	}
	return config, nil
}

// ListTelegramConfigs returns all chat-bot channel configurations.
func (ds *DataStore) ListTelegramConfigs() ([]TelegramConfig, error) {
	var configs []TelegramConfig
	if err := ds.DB.Order("id ASC").Find(&configs).Error; err != nil {
		return nil, dbError(err, "list_telegram_configs")
	}
	return configs, nil
}

// CreateWebhookConfig stores a new webhook channel configuration.
func (ds *DataStore) CreateWebhookConfig(config *WebhookConfig) error {
	if err := ds.DB.Create(config).Error; err != nil {
		return dbError(err, "create_webhook_config")
	}
	return nil
}

// GetWebhookConfig retrieves a webhook channel configuration by id.
func (ds *DataStore) GetWebhookConfig(id uint) (WebhookConfig, error) {
	var config WebhookConfig
	if err := ds.DB.First(&config, id).Error; err != nil {
		return WebhookConfig{}, dbError(err, "get_webhook_config")
	}
	return config, nil
}

// ListWebhookConfigs returns all webhook channel configurations.
func (ds *DataStore) ListWebhookConfigs() ([]WebhookConfig, error) {
	var configs []WebhookConfig
	if err := ds.DB.Order("id ASC").Find(&configs).Error; err != nil {
		return nil, dbError(err, "list_webhook_configs")
	}
	return configs, nil
}
