package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets the default value for every configuration parameter.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("environment", "development")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.corsorigins", []string{"*"})
	viper.SetDefault("server.bodylimit", "32M")

	viper.SetDefault("database.type", DatabaseSQLite)
	viper.SetDefault("database.sqlite.path", "data/obralens.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", 3306)

	viper.SetDefault("uploads.root", "data/uploads")
	viper.SetDefault("uploads.maxsizemb", 25)

	viper.SetDefault("auth.jwtsecret", "")
	viper.SetDefault("auth.tokenttl", 24*time.Hour)

	viper.SetDefault("logging.dir", "logs")
	viper.SetDefault("logging.level", "info")
}
