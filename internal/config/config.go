// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ticketrouter/internal/common/errors"
)

// Database backend types.
const (
	DatabaseMemory   = "memory"
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

// Config holds all service configuration.
type Config struct {
	Port     string
	LogLevel string

	DatabaseType string
	DatabasePath string

	PostgresDSN string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RuleCacheTTL    time.Duration
	MetricsCacheTTL time.Duration

	DefaultStrategy string

	PrewarmSchedule string
	PrewarmTeams    []string

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseType:    getEnv("DATABASE_TYPE", DatabaseSQLite),
		DatabasePath:    getEnv("DATABASE_PATH", "./ticketrouter.db"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		RedisEnabled:    getEnvBool("REDIS_ENABLED", false),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		DefaultStrategy: getEnv("DEFAULT_ASSIGNMENT_STRATEGY", "least-loaded"),
		PrewarmSchedule: getEnv("METRICS_PREWARM_SCHEDULE", "@every 4m"),
		PrewarmTeams:    splitList(os.Getenv("METRICS_PREWARM_TEAMS")),
	}

	var err error
	if cfg.RuleCacheTTL, err = getEnvDuration("RULE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MetricsCacheTTL, err = getEnvDuration("METRICS_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for configuration combinations that cannot work.
func (c *Config) Validate() error {
	switch c.DatabaseType {
	case DatabaseMemory, DatabaseSQLite, DatabasePostgres:
	default:
		return errors.ConfigError(fmt.Sprintf("unknown DATABASE_TYPE %q (expected memory, sqlite, or postgres)", c.DatabaseType))
	}

	if c.DatabaseType == DatabaseSQLite && c.DatabasePath == "" {
		return errors.ConfigError("DATABASE_PATH is required for sqlite")
	}
	if c.DatabaseType == DatabasePostgres && c.PostgresDSN == "" {
		return errors.ConfigError("POSTGRES_DSN is required for postgres")
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		return errors.ConfigError("REDIS_ADDR is required when REDIS_ENABLED is true")
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		return errors.ConfigError(fmt.Sprintf("invalid PORT %q", c.Port))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.ConfigError(fmt.Sprintf("invalid duration for %s: %q", key, value))
	}
	return parsed, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
