package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Logging
	LogLevel  string
	LogOutput string // stderr, stdout or a file path

	// HTTP API (0 disables it; the console is always on)
	HTTPPort        int
	ShutdownTimeout time.Duration

	// Bulkhead
	MaxConcurrency int

	// Idempotency replay window for HTTP mutations
	IdempotencyTTL time.Duration

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogOutput: getEnv("LOG_OUTPUT", "stderr"),

		HTTPPort:        getEnvInt("HTTP_PORT", 0),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		IdempotencyTTL: getEnvDuration("IDEMPOTENCY_TTL", 10*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// HTTPEnabled reports whether the HTTP API should be started.
func (c *Config) HTTPEnabled() bool {
	return c.HTTPPort > 0
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
