// Package config loads process configuration from the environment. A .env
// file, when present, is read by main before this runs.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/poravv/cuencly-backend/internal/logger"
	"github.com/poravv/cuencly-backend/internal/reconcile"
)

type Config struct {
	// Storage
	DatabasePath string // SQLite database file
	SnapshotDir  string // directory for monthly CSV snapshots

	// Reconciliation
	ReconcileEnabled   bool
	RecalcEnabled      bool
	ReconcileTolerance int64

	// Batch processing
	BatchTimeoutSeconds int // watchdog for one processing run
	BatchWorkers        int // concurrent document extractions

	// AI extraction
	OpenAIAPIKey string
	OpenAIModel  string

	// Google Cloud (Vision OCR, optional Document AI backend)
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Google Sheets export target (optional)
	GoogleSheetURL string

	// HTTP API
	APIAddr string

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		DatabasePath:          getEnv("CUENCLY_DB_PATH", "cuencly.db"),
		SnapshotDir:           getEnv("CUENCLY_SNAPSHOT_DIR", "snapshots"),
		ReconcileEnabled:      getBoolEnv("RECONCILE_ENABLED", true),
		RecalcEnabled:         getBoolEnv("RECONCILE_RECALC_ENABLED", true),
		ReconcileTolerance:    getInt64Env("RECONCILE_TOLERANCE", reconcile.DefaultTolerance),
		BatchTimeoutSeconds:   getIntEnv("BATCH_TIMEOUT_SECONDS", 600),
		BatchWorkers:          getIntEnv("BATCH_WORKERS", 4),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", ""),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		APIAddr:               getEnv("API_ADDR", ":8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("CUENCLY_DB_PATH must not be empty")
	}
	if c.ReconcileTolerance < 0 {
		return fmt.Errorf("RECONCILE_TOLERANCE must not be negative")
	}
	if c.BatchTimeoutSeconds <= 0 {
		return fmt.Errorf("BATCH_TIMEOUT_SECONDS must be positive")
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive")
	}
	return nil
}

// ReconcileConfig returns the reconciliation settings in the form the engine
// consumes.
func (c *Config) ReconcileConfig() reconcile.Config {
	return reconcile.Config{
		RecalcEnabled:    c.RecalcEnabled,
		ReconcileEnabled: c.ReconcileEnabled,
		Tolerance:        c.ReconcileTolerance,
	}
}

// GetLoggerConfig returns a logger configuration from the main config.
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getInt64Env(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}
