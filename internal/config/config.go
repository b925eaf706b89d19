// Package config contains everything related to configuration
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath        string
	ResultsPath         string
	AssertionsPath      string
	GatlingConfPath     string
	LogPath             string
	LogLevel            string
	ScanInterval        time.Duration
	RegressionThreshold float64
	Notify              bool
}

// Default values
const (
	defaultScanInterval = 30 * time.Second
	defaultResultsPath  = "results"
)

// DefaultRegressionThreshold is the regression threshold in percent used
// when REGRESSION_THRESHOLD is unset.
const DefaultRegressionThreshold = 10.0

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		DatabasePath:        getEnvString("DATABASE_PATH", getDefaultDatabasePath()),
		ResultsPath:         getEnvString("RESULTS_PATH", defaultResultsPath),
		AssertionsPath:      getEnvString("ASSERTIONS_PATH", ""),
		GatlingConfPath:     getEnvString("GATLING_CONF", findGatlingConf()),
		LogPath:             getEnvString("LOG_PATH", getDefaultLogPath()),
		LogLevel:            getEnvString("LOG_LEVEL", "info"),
		ScanInterval:        getEnvDuration("SCAN_INTERVAL", defaultScanInterval),
		RegressionThreshold: getEnvFloat("REGRESSION_THRESHOLD", DefaultRegressionThreshold),
		Notify:              getEnvBool("NOTIFY", false),
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "gatling-dashboard", ".env"),
			filepath.Join(home, ".gatling-dashboard", ".env"),
		)
	}

	// Parent directories (useful when running from a simulation module)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
		grandparent := filepath.Dir(parent)
		paths = append(paths, filepath.Join(grandparent, ".env"))
	}

	return paths
}

// getDefaultDatabasePath returns the default path for the SQLite database.
func getDefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "history.db"
	}
	return filepath.Join(home, ".config", "gatling-dashboard", "history.db")
}

// getDefaultLogPath returns the default path for the log file.
func getDefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gdt.log"
	}
	return filepath.Join(home, ".config", "gatling-dashboard", "gdt.log")
}

// findGatlingConf returns the first gatling.conf found in the usual
// project locations, or an empty string.
func findGatlingConf() string {
	for _, p := range []string{
		"gatling.conf",
		filepath.Join("src", "test", "resources", "gatling.conf"),
		filepath.Join("src", "gatling", "resources", "gatling.conf"),
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns the default.
// A trailing "%" is ignored.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		value = strings.TrimSuffix(strings.TrimSpace(value), "%")
		if f, err := strconv.ParseFloat(value, 64); err == nil && f >= 0 {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
