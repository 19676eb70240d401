// Package conf loads and validates the application settings.
package conf

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Settings is the root of the application configuration tree.
type Settings struct {
	Debug bool // true to enable debug logging

	Main struct {
		Name string // name of this node, used in notification titles
	}

	WebServer    WebServerSettings
	Output       OutputSettings
	Matching     MatchingSettings
	Notification NotificationSettings
}

// WebServerSettings holds the HTTP API configuration.
type WebServerSettings struct {
	Enabled bool
	Port    string
	// PageSize is the default number of rows per list page.
	PageSize int
	// MaxPageSize caps client-requested page sizes.
	MaxPageSize int
}

// OutputSettings selects and configures the database backend.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// SQLiteSettings contains settings for the SQLite database.
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// MySQLSettings contains settings for the MySQL database.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// MatchingSettings configures the detection matching engine.
type MatchingSettings struct {
	// RuleCacheTTL bounds how long compiled profile rules may be reused
	// before being reloaded; writes invalidate the cache immediately.
	RuleCacheTTL time.Duration
}

// NotificationSettings configures notification dispatch.
type NotificationSettings struct {
	Push PushSettings
}

// PushSettings controls per-channel send behaviour.
type PushSettings struct {
	Enabled     bool
	MaxRetries  int           // retries after the first attempt
	RetryDelay  time.Duration // initial backoff delay, doubles per attempt
	SendTimeout time.Duration // per-attempt timeout
}

// settingsMutex serializes access to viper's global state during Load.
var settingsMutex sync.Mutex

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/snapwatch")
	viper.AddConfigPath("/etc/snapwatch")

	viper.SetEnvPrefix("snapwatch")
	viper.AutomaticEnv()

	// Set default values for each configuration parameter,
	// function defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, run with defaults
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}
