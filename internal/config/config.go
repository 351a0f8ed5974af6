// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for links and redirects.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// MetricsEnabled exposes Prometheus metrics on /metrics.
	MetricsEnabled bool

	// TrustedProxies lists the CIDRs whose X-Forwarded-For / X-Real-IP
	// headers are believed when resolving the client IP.
	TrustedProxies []string

	// Backend holds settings for the upstream admin REST API.
	Backend BackendConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Auth holds authentication-related settings.
	Auth AuthConfig

	// Settings holds the backend settings cache configuration.
	Settings SettingsConfig
}

// BackendConfig holds connection settings for the admin REST API that owns
// all business data and authentication truth.
type BackendConfig struct {
	// URL is the base URL of the backend (e.g., "http://localhost:4000").
	URL string

	// Timeout bounds every backend call. A timed-out call is a transport
	// failure and is never retried.
	Timeout time.Duration
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	// Empty means the in-memory stores are used instead.
	URL string
}

// Enabled reports whether a Redis URL was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// SecretKey seals the transient password cookie (32+ chars in production).
	SecretKey string

	// CookieSecure is "auto" (follow TLS / X-Forwarded-Proto), "true" or "false".
	CookieSecure string

	// ResendCooldown is how long the OTP resend control stays disabled.
	ResendCooldown time.Duration

	// SessionCheckCacheTTL caches successful remote session validations.
	// Zero (the default) validates on every dashboard request.
	SessionCheckCacheTTL time.Duration

	// ProfileTTL bounds how long a cached profile outlives its last write
	// when the backend does not report a session expiry.
	ProfileTTL time.Duration
}

// SettingsConfig holds settings-cache parameters.
type SettingsConfig struct {
	// CacheTTL is how long backend settings are reused between pages.
	CacheTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnvInt("PORT", 8080),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:       getEnv("LOG_LEVEL", "debug"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", []string{
			"127.0.0.0/8",
			"10.0.0.0/8",
			"172.16.0.0/12",
			"192.168.0.0/16",
			"fd00::/8",
		}),

		Backend: BackendConfig{
			URL:     strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:4000"), "/"),
			Timeout: getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},

		Auth: AuthConfig{
			SecretKey:            getEnv("SECRET_KEY", ""),
			CookieSecure:         strings.ToLower(getEnv("COOKIE_SECURE", "auto")),
			ResendCooldown:       getEnvDuration("OTP_RESEND_COOLDOWN", 60*time.Second),
			SessionCheckCacheTTL: getEnvDuration("SESSION_CHECK_CACHE_TTL", 0),
			ProfileTTL:           getEnvDuration("PROFILE_TTL", 24*time.Hour),
		},

		Settings: SettingsConfig{
			CacheTTL: getEnvDuration("SETTINGS_CACHE_TTL", time.Minute),
		},
	}

	if _, err := url.ParseRequestURI(cfg.Backend.URL); err != nil {
		return nil, fmt.Errorf("BACKEND_URL is not a valid URL: %w", err)
	}

	switch cfg.Auth.CookieSecure {
	case "auto", "true", "false":
	default:
		return nil, fmt.Errorf("COOKIE_SECURE must be auto, true or false, got %q", cfg.Auth.CookieSecure)
	}

	if cfg.Auth.ResendCooldown <= 0 {
		return nil, fmt.Errorf("OTP_RESEND_COOLDOWN must be positive")
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Auth.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = "dev-secret-key-do-not-use-in-production!!"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool reads a boolean env var ("true", "1", "false", ...) or returns the default.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var, dropping empty items, or
// returns the default.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvDuration reads a duration env var (e.g., "60s") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
