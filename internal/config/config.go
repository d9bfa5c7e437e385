package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Priority PriorityConfig `mapstructure:"priority" validate:"required"`
	Watcher  WatcherConfig  `mapstructure:"watcher" validate:"required"`
	Sweep    SweepConfig    `mapstructure:"sweep" validate:"required"`
	Activity ActivityConfig `mapstructure:"activity" validate:"required"`
	Bulk     BulkConfig     `mapstructure:"bulk" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
}

// DatabaseConfig selects the persistence backend.
// URL is ignored by the memory driver.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory postgres sqlite"`
	URL    string `mapstructure:"url" validate:"required_unless=Driver memory"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=1440"`
}

// PriorityConfig holds the deadline thresholds, in hours, of the priority tiers.
type PriorityConfig struct {
	ImmediateHours float64 `mapstructure:"immediate_hours" validate:"gt=0"`
	MediumHours    float64 `mapstructure:"medium_hours" validate:"gtfield=ImmediateHours"`
}

// WatcherConfig controls the deadline watcher.
// When RedisURL is empty, alert deduplication is kept in memory.
type WatcherConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gte=1s"`
	RedisURL string        `mapstructure:"redis_url" validate:"omitempty,url"`
}

// SweepConfig controls the periodic priority refresh.
type SweepConfig struct {
	Schedule string `mapstructure:"schedule" validate:"required"`
}

// ActivityConfig bounds the per-tenant activity feed.
type ActivityConfig struct {
	Retention    int `mapstructure:"retention" validate:"gt=0"`
	DefaultLimit int `mapstructure:"default_limit" validate:"gt=0,ltefield=Retention"`
}

// BulkConfig bounds concurrent work in bulk operations.
type BulkConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gt=0,lte=64"`
}
