package conf

import (
	"github.com/snapwatch/snapwatch/internal/errors"
)

// ValidateSettings rejects inconsistent configuration before startup.
func ValidateSettings(settings *Settings) error {
	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		return errors.Newf("only one database output may be enabled").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return errors.Newf("no database output enabled").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		return errors.Newf("sqlite output enabled but path is empty").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.WebServer.PageSize < 1 {
		return errors.Newf("webserver page size must be at least 1, got %d", settings.WebServer.PageSize).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.WebServer.MaxPageSize < settings.WebServer.PageSize {
		return errors.Newf("webserver max page size %d is below default page size %d",
			settings.WebServer.MaxPageSize, settings.WebServer.PageSize).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.Notification.Push.MaxRetries < 0 {
		return errors.Newf("notification max retries must not be negative, got %d", settings.Notification.Push.MaxRetries).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.Notification.Push.Enabled && settings.Notification.Push.SendTimeout <= 0 {
		return errors.Newf("notification send timeout must be positive").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}
