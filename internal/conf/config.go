// Package conf loads and holds the application configuration. Values come
// from an optional YAML config file, OBRALENS_* environment variables and
// built-in defaults, in that order of precedence.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Database backends.
const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// Settings holds the full application configuration.
type Settings struct {
	Debug       bool   `mapstructure:"debug"`
	Environment string `mapstructure:"environment"` // "production" or "development"

	Server struct {
		Host        string   `mapstructure:"host"`
		Port        int      `mapstructure:"port"`
		CORSOrigins []string `mapstructure:"corsorigins"`
		BodyLimit   string   `mapstructure:"bodylimit"`
	} `mapstructure:"server"`

	Database struct {
		Type   string `mapstructure:"type"`
		SQLite struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"sqlite"`
		MySQL struct {
			Host     string `mapstructure:"host"`
			Port     int    `mapstructure:"port"`
			Database string `mapstructure:"database"`
			Username string `mapstructure:"username"`
			Password string `mapstructure:"password"`
		} `mapstructure:"mysql"`
	} `mapstructure:"database"`

	Uploads struct {
		Root      string `mapstructure:"root"`
		MaxSizeMB int    `mapstructure:"maxsizemb"`
	} `mapstructure:"uploads"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwtsecret"`
		TokenTTL  time.Duration `mapstructure:"tokenttl"`
	} `mapstructure:"auth"`

	Logging struct {
		Dir   string `mapstructure:"dir"`
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// IsProduction reports whether error responses should be terse.
func (s *Settings) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a
// Settings instance and remembers it as the process-wide configuration.
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

	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with defaults, env binding and the optional
// config file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.config/obralens")

	viper.SetEnvPrefix("obralens")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file is fine, defaults and env cover everything.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

func validateSettings(s *Settings) error {
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", s.Server.Port)
	}
	switch s.Database.Type {
	case DatabaseSQLite, DatabaseMySQL:
	default:
		return fmt.Errorf("unknown database type %q", s.Database.Type)
	}
	if s.Auth.JWTSecret == "" && s.IsProduction() {
		return fmt.Errorf("auth.jwtsecret must be set in production")
	}
	return nil
}

// Setting returns the current settings instance, initializing it if necessary.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
