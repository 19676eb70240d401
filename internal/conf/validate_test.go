package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "test.db"
	s.WebServer.PageSize = 10
	s.WebServer.MaxPageSize = 100
	s.Notification.Push.Enabled = true
	s.Notification.Push.MaxRetries = 3
	s.Notification.Push.SendTimeout = 30 * time.Second
	return s
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsRejectsDualOutputs(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Output.MySQL.Enabled = true

	err := ValidateSettings(s)
	assert.ErrorContains(t, err, "only one database output")
}

func TestValidateSettingsRejectsNoOutput(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Output.SQLite.Enabled = false

	err := ValidateSettings(s)
	assert.ErrorContains(t, err, "no database output")
}

func TestValidateSettingsRejectsBadPageSize(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.WebServer.PageSize = 0

	err := ValidateSettings(s)
	assert.ErrorContains(t, err, "page size")
}

func TestValidateSettingsRejectsZeroSendTimeout(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Notification.Push.SendTimeout = 0

	err := ValidateSettings(s)
	assert.ErrorContains(t, err, "send timeout")
}
