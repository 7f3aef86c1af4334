// Package config reads application configuration from the environment.
package config

import (
	"os"
	"strconv"

	"multiomics/internal/errors"
)

// Config represents the complete application configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Analysis AnalysisConfig
	Paths    PathConfig
}

// DatabaseConfig holds database connection settings. URL is optional: without
// it the CLI and server run with persistence disabled.
type DatabaseConfig struct {
	URL            string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrateOnStart bool
}

// ServerConfig holds web server settings.
type ServerConfig struct {
	Port string
}

// AnalysisConfig holds statistical defaults, overridable per run via CLI flags.
type AnalysisConfig struct {
	Alpha      float64
	Correction string
	Workers    int
}

// PathConfig holds file system paths for input tables and reports.
type PathConfig struct {
	OutputDir string
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:            os.Getenv("DATABASE_URL"),
			MaxOpenConns:   getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:   getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			MigrateOnStart: getEnvBoolOrDefault("DB_MIGRATE", true),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Analysis: AnalysisConfig{
			Alpha:      getEnvFloatOrDefault("ALPHA", 0.05),
			Correction: getEnvOrDefault("CORRECTION", "bh"),
			Workers:    getEnvIntOrDefault("WORKERS", 0),
		},
		Paths: PathConfig{
			OutputDir: getEnvOrDefault("OUTPUT_DIR", "."),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Analysis.Alpha <= 0 || config.Analysis.Alpha >= 1 {
		return errors.ConfigInvalid("ALPHA must be in (0, 1)")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT must not be empty")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
