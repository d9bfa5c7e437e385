package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TASKFLOW_SERVER_PORT.
const EnvPrefix = "TASKFLOW"

// defaults are applied before the config file and environment.
var defaults = map[string]interface{}{
	"server.port":                 8080,
	"server.log_level":            "info",
	"database.driver":             "memory",
	"database.url":                "",
	"auth.jwt_secret":             "",
	"auth.token_lifetime_minutes": 60,
	"priority.immediate_hours":    8.0,
	"priority.medium_hours":       32.0,
	"watcher.interval":            "1m",
	"watcher.redis_url":           "",
	"sweep.schedule":              "@every 5m",
	"activity.retention":          100,
	"activity.default_limit":      20,
	"bulk.concurrency":            8,
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadWithPaths(".")
}

// LoadWithPaths is Load with explicit directories to search for config.yaml.
func LoadWithPaths(paths ...string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees env values for keys viper already knows about
	for key := range defaults {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
