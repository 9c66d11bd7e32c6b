package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
	Alerting  AlertingConfig
	Watering  WateringConfig
	Notifier  NotifierConfig
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	TimescaleDB PostgresConfig `mapstructure:"timescaledb"`
	AppDB       PostgresConfig `mapstructure:"postgres_app"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AuthConfig guards the farm-facing (dashboard) API surface. The device
// surface authenticates with per-farm device keys instead.
type AuthConfig struct {
	APIToken string `mapstructure:"api_token"`
}

type SchedulerConfig struct {
	// Timezone is the named zone all watering schedules are evaluated in,
	// regardless of where the server runs.
	Timezone     string        `mapstructure:"timezone"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type AlertingConfig struct {
	// DedupWindow bounds repeated notifications per (farm, alert_type)
	DedupWindow time.Duration `mapstructure:"dedup_window"`
	// ZeroWindow / ZeroCount drive the stuck-sensor anomaly check
	ZeroWindow time.Duration `mapstructure:"zero_window"`
	ZeroCount  int           `mapstructure:"zero_count"`
}

type WateringConfig struct {
	MinDurationSec int           `mapstructure:"min_duration_sec"`
	MaxDurationSec int           `mapstructure:"max_duration_sec"`
	PollDebounce   time.Duration `mapstructure:"poll_debounce"`
}

type NotifierConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetEnvPrefix("FARMHUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Load config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	viper.SetDefault("database.timescaledb.sslmode", "disable")
	viper.SetDefault("database.postgres_app.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cache_ttl", "30s")

	// Scheduler defaults: farms run on local agricultural time, not
	// wherever the server happens to be deployed
	viper.SetDefault("scheduler.timezone", "Asia/Bangkok")
	viper.SetDefault("scheduler.tick_interval", "30s")

	// Alerting defaults
	viper.SetDefault("alerting.dedup_window", "30m")
	viper.SetDefault("alerting.zero_window", "30m")
	viper.SetDefault("alerting.zero_count", 5)

	// Watering defaults
	viper.SetDefault("watering.min_duration_sec", 1)
	viper.SetDefault("watering.max_duration_sec", 3600)
	viper.SetDefault("watering.poll_debounce", "3s")

	// Notifier defaults
	viper.SetDefault("notifier.timeout", "5s")
}

func validateConfig(config *Config) error {
	if config.Database.TimescaleDB.Host == "" {
		return fmt.Errorf("timescaledb host is required")
	}
	if config.Database.AppDB.Host == "" {
		return fmt.Errorf("postgres app host is required")
	}
	if config.Auth.APIToken == "" {
		return fmt.Errorf("api token is required")
	}
	if _, err := time.LoadLocation(config.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", config.Scheduler.Timezone, err)
	}
	if config.Scheduler.TickInterval <= 0 || config.Scheduler.TickInterval > time.Minute {
		return fmt.Errorf("scheduler tick interval must be within (0s, 60s] so no minute boundary is skipped")
	}
	return nil
}
