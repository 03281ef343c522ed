// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/campushub/hubaccess/pkg/observability"
	"github.com/campushub/hubaccess/pkg/storage/postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database postgres.Config

	// Redis role-fact cache configuration
	Cache CacheConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// CacheConfig holds the optional Redis role-fact cache settings
type CacheConfig struct {
	Enabled  bool
	RedisURL string
	TTL      time.Duration
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	// Cron schedule for refreshing the pending-requests gauge
	PendingGaugeSchedule string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Cache:         loadCacheConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("HUBACCESS_HOST", "0.0.0.0"),
		Port:            getEnv("HUBACCESS_PORT", "8080"),
		ReadTimeout:     getEnvDuration("HUBACCESS_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("HUBACCESS_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("HUBACCESS_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("HUBACCESS_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadDatabaseConfig() postgres.Config {
	cfg := postgres.DefaultConfig()
	cfg.URL = getEnv("HUBACCESS_POSTGRES_URL", "postgres://localhost/hubaccess?sslmode=disable")

	if maxConns := getEnvInt("HUBACCESS_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("HUBACCESS_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("HUBACCESS_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}

	return cfg
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:  getEnvBool("HUBACCESS_CACHE_ENABLED", false),
		RedisURL: getEnv("HUBACCESS_REDIS_URL", "redis://localhost:6379/0"),
		TTL:      getEnvDuration("HUBACCESS_CACHE_TTL", time.Minute),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:             observability.ParseLogLevel(getEnv("HUBACCESS_LOG_LEVEL", "info")),
		MetricsEnabled:       getEnvBool("HUBACCESS_METRICS_ENABLED", true),
		PendingGaugeSchedule: getEnv("HUBACCESS_PENDING_GAUGE_SCHEDULE", "*/5 * * * *"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Cache.Enabled && c.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when the role cache is enabled")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	return nil
}

// getEnv returns the environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as a bool or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
