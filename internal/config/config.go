// Package config loads the runtime configuration from a .env file and the
// process environment. Every knob has a default suitable for the shop's
// single-machine deployment; only BACKEND_URL, JWT_SECRET and ADMIN_PASSWORD
// must be set for the corresponding feature to work.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything main needs to wire the server.
type Config struct {
	Port           string
	DBPath         string
	BackendURL     string
	BillPrefix     string
	SyncTimeout    time.Duration
	ProbeTimeout   time.Duration
	SyncMaxRetries int
	JWTSecret      string
	AdminPassword  string
}

// Load reads .env if present, then the environment, and applies defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "./data/bills.db"),
		BackendURL:    os.Getenv("BACKEND_URL"),
		BillPrefix:    getEnv("BILL_PREFIX", "FAM"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	var err error
	if cfg.SyncTimeout, err = getDuration("SYNC_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = getDuration("PROBE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncMaxRetries, err = getInt("SYNC_MAX_RETRIES", 3); err != nil {
		return nil, err
	}

	if cfg.BillPrefix == "" {
		return nil, fmt.Errorf("BILL_PREFIX must not be empty")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}
