// Package config centralises configuration parsing for the exercise tracker.
package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

// ErrMissingMongoURI is returned when the store connection string is absent.
var ErrMissingMongoURI = errors.New("MONGO_URI environment variable is required")

// Config captures runtime configuration values for the exercise tracker.
type Config struct {
	HTTPAddress     string
	MongoURI        string
	MongoDatabase   string
	StaticDir       string
	KafkaBrokers    []string // empty disables event publishing
	ShutdownTimeout time.Duration
}

// Load reads environment variables into Config, applying defaults for local
// dev. The store connection string has no default: without it the process
// must not start serving store-backed routes, so loading fails fast.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddress:     ":" + getEnv("PORT", "3000"),
		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "exercise_tracker"),
		StaticDir:       getEnv("STATIC_DIR", "public"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 15*time.Second),
	}

	if cfg.MongoURI == "" {
		return Config{}, ErrMissingMongoURI
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
