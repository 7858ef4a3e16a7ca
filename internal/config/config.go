// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/resource"
)

// Config holds all configuration values for the API server and the CLI.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the connection string for DBDriver. Required.
	DatabaseURL string

	// DBDriver selects the repository implementation: pgx (default),
	// postgres, sqlite or mysql.
	DBDriver string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// LogFormat is json (default) or text.
	LogFormat string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// CatalogPath is the YAML catalog of models and resources.
	CatalogPath string

	// ExportLocation is the zone datetime values are shown in on export and
	// parsed in on import. Set with EXPORT_TIMEZONE; defaults to UTC.
	ExportLocation *time.Location

	// ExportDateTimeLayout is the Go layout used for datetime cells.
	ExportDateTimeLayout string

	// MaxUploadBytes caps import request bodies. Defaults to 32 MiB.
	MaxUploadBytes int64
}

// TransferOptions returns the export and import options the config describes.
func (c Config) TransferOptions() resource.Options {
	return resource.Options{Location: c.ExportLocation, DateTimeLayout: c.ExportDateTimeLayout}
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set and every
// variable whose value cannot be used.
func Load() (Config, error) {
	cfg := Config{
		Port:                 getEnv("PORT", "8080"),
		DBDriver:             getEnv("DB_DRIVER", "pgx"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
		CORSOrigins:          splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		CatalogPath:          getEnv("CATALOG_PATH", "catalog.yaml"),
		ExportDateTimeLayout: getEnv("EXPORT_DATETIME_LAYOUT", resource.DefaultDateTimeLayout),
	}

	var missing, invalid []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if !slices.Contains(repo.Drivers, cfg.DBDriver) {
		invalid = append(invalid, fmt.Sprintf("DB_DRIVER=%q (want one of %s)", cfg.DBDriver, strings.Join(repo.Drivers, ", ")))
	}

	tz := getEnv("EXPORT_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		invalid = append(invalid, fmt.Sprintf("EXPORT_TIMEZONE=%q: %v", tz, err))
	}
	cfg.ExportLocation = loc

	size := getEnv("MAX_UPLOAD_BYTES", "33554432")
	cfg.MaxUploadBytes, err = strconv.ParseInt(size, 10, 64)
	if err != nil || cfg.MaxUploadBytes < 0 {
		invalid = append(invalid, fmt.Sprintf("MAX_UPLOAD_BYTES=%q: want a non-negative integer", size))
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "required environment variables not set: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		problems = append(problems, "invalid environment variables: "+strings.Join(invalid, "; "))
	}
	if len(problems) > 0 {
		return Config{}, errors.New(strings.Join(problems, "; "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
