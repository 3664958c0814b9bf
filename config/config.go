// Package config loads settings with precedence: command-line flags, then
// environment variables, then the .env file, then defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Admin     AdminConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Query     QueryConfig
}

type AppConfig struct {
	Environment string
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver       string
	URI          string
	Name         string
	Transactions bool
}

type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	CookieSecure  bool
	CookieDomain  string
}

// AdminConfig is the account the seed command and startup bootstrap create.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

type StorageConfig struct {
	Driver          string
	GCSBucket       string
	CredentialsFile string
	R2Bucket        string
	R2AccessKey     string
	R2SecretKey     string
	R2Endpoint      string
	R2PublicDomain  string
	MaxUploadMB     int
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type QueryConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// Overrides holds flag values keyed by the environment variable they replace.
// Empty values are ignored.
type Overrides map[string]string

// Load reads envFile (missing files are ignored) and builds the config.
// godotenv never overwrites variables already set in the environment.
func Load(envFile string, flags Overrides) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	l := loader{flags: flags}
	cfg := &Config{
		App:    AppConfig{Environment: l.str("ENV", "development")},
		Logger: LoggerConfig{Level: l.str("LOG_LEVEL", "info")},
		Server: ServerConfig{
			Port:           l.str("PORT", "8080"),
			AllowedOrigins: splitList(l.str("ALLOWED_ORIGINS", "")),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(l.str("DB_DRIVER", DriverMongo)),
			URI:          l.str("MONGODB_URI", "mongodb://localhost:27017"),
			Name:         l.str("DATABASE_NAME", "myscheme"),
			Transactions: l.boolean("MONGODB_TRANSACTIONS", false),
		},
		Auth: AuthConfig{
			AccessSecret:  l.str("JWT_SECRET", ""),
			RefreshSecret: l.str("JWT_REFRESH_SECRET", ""),
			AccessTTL:     time.Duration(l.integer("ACCESS_TOKEN_TTL_MINUTES", 15)) * time.Minute,
			RefreshTTL:    time.Duration(l.integer("REFRESH_TOKEN_TTL_DAYS", 14)) * 24 * time.Hour,
			CookieSecure:  l.boolean("COOKIE_SECURE", false),
			CookieDomain:  l.str("COOKIE_DOMAIN", ""),
		},
		Admin: AdminConfig{
			Email:    strings.ToLower(strings.TrimSpace(l.str("ADMIN_EMAIL", ""))),
			Password: l.str("ADMIN_PASSWORD", ""),
			Name:     l.str("ADMIN_NAME", "Administrator"),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(l.str("STORAGE_DRIVER", "none")),
			GCSBucket:       l.str("GCS_BUCKET", ""),
			CredentialsFile: l.str("CREDENTIALS_FILE_LOCATION", ""),
			R2Bucket:        l.str("R2_BUCKET", ""),
			R2AccessKey:     l.str("R2_ACCESS_KEY_ID", ""),
			R2SecretKey:     l.str("R2_SECRET_ACCESS_KEY", ""),
			R2Endpoint:      l.str("R2_ENDPOINT", ""),
			R2PublicDomain:  l.str("R2_PUBLIC_DOMAIN", ""),
			MaxUploadMB:     l.integer("MAX_UPLOAD_SIZE_MB", 5),
		},
		RateLimit: RateLimitConfig{
			RPS:   l.float("RATE_LIMIT_RPS", 5),
			Burst: l.integer("RATE_LIMIT_BURST", 20),
		},
		Query: QueryConfig{
			DefaultLimit: l.integer("DEFAULT_PAGE_LIMIT", 12),
			MaxLimit:     l.integer("MAX_PAGE_LIMIT", 100),
		},
	}

	if len(l.problems) > 0 {
		return nil, errors.Join(l.problems...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{"development": true, "staging": true, "production": true, "test": true}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s", c.App.Environment)
	}

	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.URI == "" || c.Database.Name == "" {
			return errors.New("MONGODB_URI and DATABASE_NAME are required for the mongo driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q (must be mongo or memory)", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "none", "gcs", "r2":
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q (must be none, gcs or r2)", c.Storage.Driver)
	}

	if c.Query.DefaultLimit <= 0 || c.Query.MaxLimit < c.Query.DefaultLimit {
		return fmt.Errorf("invalid page limits: default %d, max %d", c.Query.DefaultLimit, c.Query.MaxLimit)
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
}

// ValidateServe adds the checks only the HTTP server needs.
func (c *Config) ValidateServe() error {
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET are required")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

type loader struct {
	flags    Overrides
	problems []error
}

func (l *loader) str(key, def string) string {
	if v := l.flags[key]; v != "" {
		return v
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (l *loader) integer(key string, def int) int {
	raw := l.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		l.problems = append(l.problems, fmt.Errorf("%s: %q is not an integer", key, raw))
		return def
	}
	return n
}

func (l *loader) float(key string, def float64) float64 {
	raw := l.str(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		l.problems = append(l.problems, fmt.Errorf("%s: %q is not a number", key, raw))
		return def
	}
	return f
}

func (l *loader) boolean(key string, def bool) bool {
	raw := strings.ToLower(l.str(key, ""))
	if raw == "" {
		return def
	}
	return raw == "true" || raw == "1" || raw == "yes"
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
