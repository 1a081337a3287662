// Package config loads and validates the lobby server's environment
// configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration.
type Config struct {
	// Required variables
	Port string

	// Profile/match store
	NocodeBackendURL    string
	NocodeBackendAPIKey string

	// Optional variables with defaults
	GoEnv          string
	LogLevel       string
	DebugLogging   bool
	ClientURL      string
	AllowedOrigins string

	// Optional distributed bus
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string

	// Optional tracing; empty disables the OTLP exporter entirely.
	OtelCollectorAddr string

	// Rate limits (defaults: M = Minute, H = Hour)
	RateLimitAPIGlobal string
	RateLimitAPIRooms  string
	RateLimitWsIP      string
	RateLimitWsProfile string
}

// ValidateEnv validates all required environment variables and returns a
// Config object. Returns an error if any required variable is missing or
// invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	// Required: PORT (valid port number)
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		errs = append(errs, "PORT is required")
	} else if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	// Required: NOCODE_BACKEND_URL (the ProfileStore/MatchStore origin)
	cfg.NocodeBackendURL = os.Getenv("NOCODE_BACKEND_URL")
	if cfg.NocodeBackendURL == "" {
		errs = append(errs, "NOCODE_BACKEND_URL is required")
	}
	cfg.NocodeBackendAPIKey = os.Getenv("NOCODE_BACKEND_API_KEY")

	// Optional: CLIENT_URL, an additional CORS origin
	cfg.ClientURL = os.Getenv("CLIENT_URL")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")

	// Optional: DEBUG_LOGGING (verbose mode)
	cfg.DebugLogging = os.Getenv("DEBUG_LOGGING") == "true"

	// Conditional: REDIS_ADDR (required if REDIS_ENABLED=true)
	cfg.RedisEnabled = os.Getenv("REDIS_ENABLED") == "true"
	if cfg.RedisEnabled {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
		if cfg.RedisAddr == "" {
			cfg.RedisAddr = "localhost:6379"
			slog.Warn("REDIS_ADDR not set, using default", "addr", cfg.RedisAddr)
		} else if !isValidHostPort(cfg.RedisAddr) {
			errs = append(errs, fmt.Sprintf("REDIS_ADDR must be in format 'host:port' (got '%s')", cfg.RedisAddr))
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}

	// Optional: GO_ENV (defaults to "production")
	cfg.GoEnv = os.Getenv("GO_ENV")
	if cfg.GoEnv == "" {
		cfg.GoEnv = "production"
	}

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// Optional: OTEL_COLLECTOR_ADDR (empty disables tracing)
	cfg.OtelCollectorAddr = os.Getenv("OTEL_COLLECTOR_ADDR")

	// Rate limits
	cfg.RateLimitAPIGlobal = getEnvOrDefault("RATE_LIMIT_API_GLOBAL", "1000-M")
	cfg.RateLimitAPIRooms = getEnvOrDefault("RATE_LIMIT_API_ROOMS", "100-M")
	cfg.RateLimitWsIP = getEnvOrDefault("RATE_LIMIT_WS_IP", "100-M")
	cfg.RateLimitWsProfile = getEnvOrDefault("RATE_LIMIT_WS_PROFILE", "10-M")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// isValidHostPort checks if a string is in the format "host:port".
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	if parts[0] == "" {
		return false
	}

	return true
}

// logValidatedConfig logs the validated configuration with secrets redacted.
func logValidatedConfig(cfg *Config) {
	slog.Info("environment configuration validated",
		"port", cfg.Port,
		"nocode_backend_url", cfg.NocodeBackendURL,
		"nocode_backend_api_key", redactSecret(cfg.NocodeBackendAPIKey),
		"redis_enabled", cfg.RedisEnabled,
		"redis_addr", cfg.RedisAddr,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"debug_logging", cfg.DebugLogging,
		"rate_limit_api_global", cfg.RateLimitAPIGlobal,
	)
}

// getEnvOrDefault returns the value of the environment variable or a
// default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// redactSecret redacts a secret by showing only the first 8 characters.
func redactSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:8] + "***"
}
