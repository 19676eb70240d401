// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "SnapWatch")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.pagesize", 10)
	viper.SetDefault("webserver.maxpagesize", 100)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "snapwatch.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "snapwatch")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "snapwatch")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("matching.rulecachettl", 5*time.Minute)

	viper.SetDefault("notification.push.enabled", true)
	viper.SetDefault("notification.push.maxretries", 3)
	viper.SetDefault("notification.push.retrydelay", 2*time.Second)
	viper.SetDefault("notification.push.sendtimeout", 30*time.Second)
}
