// Package config provides configuration management for the messagely application.
// It handles loading and validation of configuration values from environment variables,
// with support for required variables, default values, and collective error reporting.
// The resulting AppConfig is built once at startup and never mutated afterwards.
package config

import (
	"fmt"
	// `os` package provides operating system functionalities, like reading environment variables.
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Storage drivers understood by LoadConfig.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// PoolConfig represents configuration for the database connection pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxSize  int
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	JWTSecret        string // Secret key for signing tokens
	BcryptWorkFactor int    // bcrypt cost parameter
	HashWorkers      int    // Number of goroutines running bcrypt work
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string // Port for the HTTP server
	ShutdownTimeout time.Duration
}

// LogConfig selects the zap preset.
type LogConfig struct {
	Environment string
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	StorageDriver string
	DB            *PoolConfig
	Auth          *AuthConfig
	Server        *ServerConfig
	Log           *LogConfig
}

// Helper function to get a required environment variable.
// Appends an error to the errors slice if the variable is not set.
func getRequiredEnv(key string, errors *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		*errors = append(*errors, fmt.Sprintf("missing required environment variable: %s", key))
		return "" // Return empty string, error is collected
	}
	return value
}

// Helper function to get an optional environment variable with a default string value.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get an optional environment variable parsed as an int.
// Uses defaultValue if not set or if parsing fails. Appends an error if parsing fails.
func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

// Helper function to get an optional environment variable parsed as time.Duration.
// `time.ParseDuration` expects a string like "15m", "1h30s".
func getOptionalEnvDuration(key string, defaultValue time.Duration, errors *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// clampPoolSize keeps the pool size between 5 and 100, recording a note when it had to clamp.
func clampPoolSize(size int, varName string, errors *[]string) int {
	if size < 5 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is less than minimum 5", varName, size))
		return 5
	}
	if size > 100 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is greater than maximum 100", varName, size))
		return 100
	}
	return size
}

func loadPoolConfig(errors *[]string) *PoolConfig {
	cfg := &PoolConfig{
		User:     getRequiredEnv("DB_USER", errors),
		Password: getRequiredEnv("DB_PASSWORD", errors),
		DBName:   getRequiredEnv("DB_NAME", errors),
		Host:     getOptionalEnv("DB_HOST", "localhost"),
		Port:     getOptionalEnvInt("DB_PORT", 5432, errors),
		SSLMode:  getOptionalEnv("DB_SSLMODE", "disable"),
	}
	cfg.MaxSize = clampPoolSize(getOptionalEnvInt("DB_POOL_SIZE", 10, errors), "DB_POOL_SIZE", errors)
	return cfg
}

// LoadPoolConfig reads only the database variables. The migrate command uses
// it so that schema changes do not require the auth secret.
func LoadPoolConfig() (*PoolConfig, error) {
	var errors []string
	cfg := loadPoolConfig(&errors)
	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}
	return cfg, nil
}

// LoadConfig creates and returns an AppConfig by reading and validating environment variables.
// It collects all errors encountered during loading and returns a single error if any exist.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	storageDriver := strings.ToLower(getOptionalEnv("STORAGE_DRIVER", StoragePostgres))

	// Database Configuration
	// Credentials are only required when we actually talk to Postgres.
	var dbCfg *PoolConfig
	switch storageDriver {
	case StoragePostgres:
		dbCfg = loadPoolConfig(&errors)
	case StorageMemory:
		// nothing to configure
	default:
		errors = append(errors, fmt.Sprintf("invalid value for STORAGE_DRIVER: %q (expected %q or %q)", storageDriver, StoragePostgres, StorageMemory))
	}

	// Auth Configuration
	jwtSecret := getRequiredEnv("JWT_SECRET", &errors)
	workFactor := getOptionalEnvInt("BCRYPT_WORK_FACTOR", 12, &errors)
	if workFactor < bcrypt.MinCost || workFactor > bcrypt.MaxCost {
		errors = append(errors, fmt.Sprintf("BCRYPT_WORK_FACTOR must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, workFactor))
	}
	hashWorkers := getOptionalEnvInt("HASH_WORKERS", runtime.NumCPU(), &errors)
	if hashWorkers < 1 {
		errors = append(errors, fmt.Sprintf("HASH_WORKERS must be at least 1, got %d", hashWorkers))
	}

	authConfig := &AuthConfig{
		JWTSecret:        jwtSecret,
		BcryptWorkFactor: workFactor,
		HashWorkers:      hashWorkers,
	}

	// Server Configuration
	serverConfig := &ServerConfig{
		// The port stays a string because it's used directly in the listen address (":3000").
		Port:            getOptionalEnv("PORT", "3000"),
		ShutdownTimeout: getOptionalEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second, &errors),
	}

	logConfig := &LogConfig{
		Environment: getOptionalEnv("APP_ENV", "development"),
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return &AppConfig{
		StorageDriver: storageDriver,
		DB:            dbCfg,
		Auth:          authConfig,
		Server:        serverConfig,
		Log:           logConfig,
	}, nil
}
