package config

import (
	"os"
	"strconv"
	"strings"
)

// Output formats understood by the renderer
const (
	OutputText       = "text"
	OutputMarkdown   = "markdown"
	OutputJSON       = "json"
	OutputJSONPretty = "jsonpretty"
	OutputHTML       = "html"
)

// OutputFormats returns the list of supported output formats
func OutputFormats() []string {
	return []string{OutputText, OutputMarkdown, OutputJSON, OutputJSONPretty, OutputHTML}
}

// Config holds the application configuration
type Config struct {
	LogLevel string

	// Snapshot source: a file path ("-" for stdin) or a collector command printing the snapshot JSON
	SnapshotFile string
	SnapshotCmd  []string

	SettingsFile      string
	IgnoredIssuesFile string
	ShowIgnoredIssues bool

	Output string

	// Prometheus textfile destination (empty = disabled)
	MetricsFile string

	// Exit non-zero when an unsuppressed finding reaches this gravity (empty = never)
	FailOn string
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		LogLevel:          getEnvAsString("PVE_DIAG_LOG_LEVEL", "info"),
		SnapshotFile:      getEnvAsString("PVE_DIAG_SNAPSHOT_FILE", "data.json"),
		SnapshotCmd:       getEnvAsStringSlice("PVE_DIAG_SNAPSHOT_CMD", nil),
		SettingsFile:      getEnvAsString("PVE_DIAG_SETTINGS_FILE", ""),
		IgnoredIssuesFile: getEnvAsString("PVE_DIAG_IGNORED_ISSUES_FILE", ""),
		ShowIgnoredIssues: getEnvAsBool("PVE_DIAG_SHOW_IGNORED", false),
		Output:            getEnvAsString("PVE_DIAG_OUTPUT", OutputText),
		MetricsFile:       getEnvAsString("PVE_DIAG_METRICS_FILE", ""),
		FailOn:            getEnvAsString("PVE_DIAG_FAIL_ON", ""),
	}
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsOutputSupported checks the configured output format
func (c *Config) IsOutputSupported() bool {
	for _, format := range OutputFormats() {
		if format == c.Output {
			return true
		}
	}
	return false
}

// getEnvAsString reads an environment variable or returns the default value if not set
func getEnvAsString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool reads an environment variable and returns it as a boolean,
// or returns the default value if not set or invalid
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsStringSlice reads an environment variable as a comma-separated list,
// or returns the default value if not set
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
