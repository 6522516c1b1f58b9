package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration parsed from environment variables.
type Config struct {
	HTTPAddr        string
	DBConnString    string
	ShutdownTimeout time.Duration
	LogLevel        string

	// BackendURL is the marketplace backend. Empty runs the in-process dev backend.
	BackendURL     string
	BackendTimeout time.Duration

	// IdentityURL is the identity provider. Empty signs delegations locally.
	IdentityURL    string
	IdentitySecret string
	DelegationTTL  time.Duration

	CORSOrigins   []string
	SessionIdle   time.Duration
	SecureCookies bool
}

// FromEnv builds Config with defaults, overridden by environment variables.
func FromEnv() Config {
	return Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		DBConnString:    os.Getenv("DB_DSN"),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT_SECONDS", time.Second, 10*time.Second),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		BackendURL:      strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),
		BackendTimeout:  envDuration("BACKEND_TIMEOUT_SECONDS", time.Second, 15*time.Second),
		IdentityURL:     strings.TrimRight(os.Getenv("IDENTITY_URL"), "/"),
		IdentitySecret:  envOrDefault("IDENTITY_SECRET", "farmsmart-dev-secret"),
		DelegationTTL:   envDuration("DELEGATION_TTL_HOURS", time.Hour, 8*time.Hour),
		CORSOrigins:     envList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		SessionIdle:     envDuration("SESSION_IDLE_MINUTES", time.Minute, time.Hour),
		SecureCookies:   os.Getenv("SECURE_COOKIES") == "true",
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, unit, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 {
			return time.Duration(n) * unit
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
