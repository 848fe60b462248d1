package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	DatabaseURL string

	ModelMode    string
	ModelURL     string
	ModelTimeout time.Duration
	ModelWorkers int

	AuthSecret string
	TokenTTL   time.Duration

	SessionListLimit int
	UploadMaxBytes   int64
}

// Load reads an optional .env file, then environment variables, and applies
// safe defaults.
func Load() (Config, error) {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "chatterbox"),
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		ModelMode:        envOrDefault("MODEL_MODE", "auto"),
		ModelURL:         trimmedEnv("MODEL_URL"),
		AuthSecret:       envOrDefault("AUTH_SECRET", "dev-insecure-secret"),
		ShutdownTimeout:  15 * time.Second,
		ModelTimeout:     60 * time.Second,
		ModelWorkers:     10,
		TokenTTL:         24 * time.Hour,
		SessionListLimit: 20,
		UploadMaxBytes:   64 << 10,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ModelTimeout, err = durationFromEnv("MODEL_TIMEOUT", cfg.ModelTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ModelWorkers, err = intFromEnv("MODEL_WORKERS", cfg.ModelWorkers)
	if err != nil {
		return Config{}, err
	}
	cfg.TokenTTL, err = durationFromEnv("AUTH_TOKEN_TTL", cfg.TokenTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionListLimit, err = intFromEnv("APP_SESSION_LIST_LIMIT", cfg.SessionListLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.UploadMaxBytes, err = int64FromEnv("APP_UPLOAD_MAX_BYTES", cfg.UploadMaxBytes)
	if err != nil {
		return Config{}, err
	}

	if cfg.ModelTimeout < time.Second {
		return Config{}, fmt.Errorf("MODEL_TIMEOUT must be at least 1s")
	}
	if cfg.ModelWorkers <= 0 {
		return Config{}, fmt.Errorf("MODEL_WORKERS must be positive")
	}
	if cfg.TokenTTL < time.Minute {
		return Config{}, fmt.Errorf("AUTH_TOKEN_TTL must be at least 1m")
	}
	if cfg.SessionListLimit <= 0 {
		return Config{}, fmt.Errorf("APP_SESSION_LIST_LIMIT must be positive")
	}
	if cfg.UploadMaxBytes <= 0 {
		return Config{}, fmt.Errorf("APP_UPLOAD_MAX_BYTES must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func int64FromEnv(key string, fallback int64) (int64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
