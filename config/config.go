// Package config provides configuration management for the symbolic-cat service.
// It handles loading and validation of configuration values from environment variables,
// with support for required variables, default values, and collective error reporting:
// every missing or malformed value is reported at once instead of failing on the first.
package config

import (
	"fmt"
	// `os` package provides operating system functionalities, like reading environment variables.
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/crypto/bcrypt"
)

// Store backends understood by StoreConfig.Backend.
const (
	BackendKV       = "kv"
	BackendGist     = "gist"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// StoreConfig holds configuration for the remote document store.
type StoreConfig struct {
	Backend string

	// KV JSON API (`DB_URL` + resource path, `token` header).
	BaseURL string
	Token   string

	// GitHub Gist used as a database.
	GistID     string
	GistToken  string
	GistAPIURL string

	// Postgres documents table.
	DatabaseURL string

	// S3 objects.
	S3Bucket    string
	S3Prefix    string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string // Static credentials (MinIO); empty uses the default AWS chain
	S3SecretKey string

	// Redis keys.
	RedisURL    string
	RedisPrefix string

	Timeout            time.Duration // Deadline applied to every outbound call
	MaxConflictRetries int           // Read-modify-write retries on a version conflict
	ConflictRetryDelay time.Duration
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	SessionTTL           time.Duration // Lifetime of a login session
	SessionPruneInterval time.Duration // How often the janitor prunes expired sessions; 0 disables it
	BcryptCost           int
	CSRFSecret           string        // When set, CSRF tokens are signed and verified
	CSRFTokenTTL         time.Duration // Lifetime of an issued CSRF token
	CookieSecure         bool
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port               string
	CORSAllowedOrigins []string
	Debug              bool   // Exposes wrapped error details and debug logs
	LogFormat          string // "text" or "json"
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	Store  *StoreConfig
	Auth   *AuthConfig
	Server *ServerConfig
}

// Helper function to get a required environment variable.
// Appends an error if the variable is not set or empty.
func getRequiredEnv(key string, errs *multierror.Error) (string, *multierror.Error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return "", multierror.Append(errs, fmt.Errorf("missing required environment variable: %s", key))
	}
	return value, errs
}

// Helper function to get an optional environment variable with a default string value.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// Helper function to get an optional environment variable parsed as an int.
// Uses defaultValue if not set; records an error if parsing fails.
func getOptionalEnvInt(key string, defaultValue int, errs *multierror.Error) (int, *multierror.Error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue, errs
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue, multierror.Append(errs, fmt.Errorf("invalid value for %s: expected integer, got '%s': %w", key, valueStr, err))
	}
	return valueInt, errs
}

// Helper function to get an optional environment variable parsed as time.Duration.
// `time.ParseDuration` expects a string like "15m", "1h30s".
func getOptionalEnvDuration(key string, defaultValue time.Duration, errs *multierror.Error) (time.Duration, *multierror.Error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue, errs
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue, multierror.Append(errs, fmt.Errorf("invalid value for %s: expected duration string, got '%s': %w", key, valueStr, err))
	}
	return valueDuration, errs
}

// Helper function to get an optional environment variable parsed as a bool.
func getOptionalEnvBool(key string, defaultValue bool, errs *multierror.Error) (bool, *multierror.Error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue, errs
	}
	v, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue, multierror.Append(errs, fmt.Errorf("invalid value for %s: expected boolean, got '%s': %w", key, valueStr, err))
	}
	return v, errs
}

// loadStoreConfig reads the backend selection and only requires the variables that backend needs.
func loadStoreConfig(errs *multierror.Error) (*StoreConfig, *multierror.Error) {
	cfg := &StoreConfig{
		Backend:     strings.ToLower(getOptionalEnv("STORE_BACKEND", BackendKV)),
		GistAPIURL:  getOptionalEnv("GIST_API_URL", "https://api.github.com"),
		S3Prefix:    getOptionalEnv("S3_PREFIX", ""),
		S3Endpoint:  getOptionalEnv("S3_ENDPOINT", ""),
		S3Region:    getOptionalEnv("AWS_REGION", "us-east-1"),
		S3AccessKey: getOptionalEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getOptionalEnv("S3_SECRET_KEY", ""),
		RedisPrefix: getOptionalEnv("REDIS_PREFIX", "symbolic-cat:"),
	}

	switch cfg.Backend {
	case BackendKV:
		cfg.BaseURL, errs = getRequiredEnv("DB_URL", errs)
		cfg.Token, errs = getRequiredEnv("DB_KEY", errs)
		cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	case BackendGist:
		cfg.GistID, errs = getRequiredEnv("GIST_ID", errs)
		cfg.GistToken, errs = getRequiredEnv("GITHUB_TOKEN", errs)
	case BackendPostgres:
		cfg.DatabaseURL, errs = getRequiredEnv("DATABASE_URL", errs)
	case BackendS3:
		cfg.S3Bucket, errs = getRequiredEnv("S3_BUCKET", errs)
	case BackendRedis:
		cfg.RedisURL, errs = getRequiredEnv("REDIS_URL", errs)
	case BackendMemory:
		// Nothing to configure; documents live in the process.
	default:
		errs = multierror.Append(errs, fmt.Errorf("invalid value for STORE_BACKEND: %q (want kv, gist, postgres, s3, redis or memory)", cfg.Backend))
	}

	cfg.Timeout, errs = getOptionalEnvDuration("STORE_TIMEOUT", 10*time.Second, errs)
	cfg.MaxConflictRetries, errs = getOptionalEnvInt("STORE_MAX_CONFLICT_RETRIES", 5, errs)
	cfg.ConflictRetryDelay, errs = getOptionalEnvDuration("STORE_CONFLICT_RETRY_DELAY", 50*time.Millisecond, errs)

	if cfg.Timeout <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("STORE_TIMEOUT must be positive, got %s", cfg.Timeout))
	}
	if cfg.MaxConflictRetries < 0 {
		errs = multierror.Append(errs, fmt.Errorf("STORE_MAX_CONFLICT_RETRIES must not be negative, got %d", cfg.MaxConflictRetries))
	}
	return cfg, errs
}

// clampBcryptCost keeps the configured cost inside the range bcrypt accepts.
func clampBcryptCost(cost int) int {
	if cost < bcrypt.MinCost {
		return bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		return bcrypt.MaxCost
	}
	return cost
}

// LoadConfig creates and returns an AppConfig by reading and validating environment variables.
// It collects all errors encountered during loading and returns a single error if any exist.
func LoadConfig() (*AppConfig, error) {
	var errs *multierror.Error

	storeConfig, errs := loadStoreConfig(errs)

	// Auth Configuration
	authConfig := &AuthConfig{
		CSRFSecret: getOptionalEnv("CSRF_SECRET", ""),
	}
	authConfig.SessionTTL, errs = getOptionalEnvDuration("SESSION_TTL", 30*24*time.Hour, errs)
	authConfig.SessionPruneInterval, errs = getOptionalEnvDuration("SESSION_PRUNE_INTERVAL", time.Hour, errs)
	authConfig.CSRFTokenTTL, errs = getOptionalEnvDuration("CSRF_TOKEN_TTL", 12*time.Hour, errs)
	authConfig.CookieSecure, errs = getOptionalEnvBool("COOKIE_SECURE", true, errs)
	var cost int
	cost, errs = getOptionalEnvInt("BCRYPT_COST", bcrypt.DefaultCost, errs)
	authConfig.BcryptCost = clampBcryptCost(cost)

	if authConfig.SessionTTL <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", authConfig.SessionTTL))
	}

	// Server Configuration
	serverConfig := &ServerConfig{
		Port:      getOptionalEnv("PORT", "8080"),
		LogFormat: getOptionalEnv("LOG_FORMAT", "text"),
	}
	serverConfig.Debug, errs = getOptionalEnvBool("DEBUG", false, errs)
	for _, origin := range strings.Split(getOptionalEnv("CORS_ALLOWED_ORIGINS", "https://symbolic-cat.netlify.app"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			serverConfig.CORSAllowedOrigins = append(serverConfig.CORSAllowedOrigins, origin)
		}
	}

	// If any errors were collected during loading, return them as one.
	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("configuration errors: %w", err)
	}

	return &AppConfig{
		Store:  storeConfig,
		Auth:   authConfig,
		Server: serverConfig,
	}, nil
}
