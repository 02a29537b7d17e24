package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	IdentityBackendLocal    = "local"
	IdentityBackendFirebase = "firebase"
)

// DefaultJWTSecret is the development fallback for JWT_SECRET. It is public,
// so release mode refuses to sign tokens with it.
const DefaultJWTSecret = "development-insecure-secret-change-me"

// Config holds the runtime settings of the service.
type Config struct {
	HTTPPort                string
	DBPath                  string
	JWTSecret               string
	JWTIssuer               string
	JWTAudience             string
	StatsLocation           *time.Location
	IdentityBackend         string
	FirebaseCredentialsPath string
	LookupConcurrency       int
	ShutdownTimeout         time.Duration
	GinMode                 string
	LogLevel                slog.Level
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	loc, err := loadLocation(GetEnv("STATS_TIMEZONE", "Local"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:                GetEnv("HTTP_PORT", "8008"),
		DBPath:                  GetEnv("DB_PATH", "tasks-management.db"),
		JWTSecret:               GetEnv("JWT_SECRET", DefaultJWTSecret),
		JWTIssuer:               GetEnv("JWT_ISSUER", "fieldops-api"),
		JWTAudience:             GetEnv("JWT_AUDIENCE", "fieldops-clients"),
		StatsLocation:           loc,
		IdentityBackend:         strings.ToLower(GetEnv("IDENTITY_BACKEND", IdentityBackendLocal)),
		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),
		LookupConcurrency:       getEnvInt("LOOKUP_CONCURRENCY", 8),
		ShutdownTimeout:         getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		GinMode:                 GetEnv("GIN_MODE", "release"),
		LogLevel:                parseLevel(GetEnv("LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.IdentityBackend {
	case IdentityBackendLocal:
		if c.GinMode == "release" && c.JWTSecret == DefaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set when GIN_MODE=release")
		}
	case IdentityBackendFirebase:
		if c.FirebaseCredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when IDENTITY_BACKEND=firebase")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_BACKEND %q", c.IdentityBackend)
	}
	if c.LookupConcurrency < 1 {
		return fmt.Errorf("LOOKUP_CONCURRENCY must be positive, got %d", c.LookupConcurrency)
	}
	return nil
}

// GetEnv returns the value of key, or fallback when it is unset or empty.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
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

func loadLocation(name string) (*time.Location, error) {
	if strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
