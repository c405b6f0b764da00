package config

import (
	"os"
	"reflect"
	"testing"
)

var configEnv = []string{
	"PVE_DIAG_LOG_LEVEL",
	"PVE_DIAG_SNAPSHOT_FILE",
	"PVE_DIAG_SNAPSHOT_CMD",
	"PVE_DIAG_SETTINGS_FILE",
	"PVE_DIAG_IGNORED_ISSUES_FILE",
	"PVE_DIAG_SHOW_IGNORED",
	"PVE_DIAG_OUTPUT",
	"PVE_DIAG_METRICS_FILE",
	"PVE_DIAG_FAIL_ON",
}

// clearConfigEnv unsets every config variable for the duration of the test
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestNewConfig(t *testing.T) {
	clearConfigEnv(t)

	cfg := NewConfig()

	// Check default log level
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.SnapshotFile != "data.json" {
		t.Errorf("SnapshotFile = %v, want data.json", cfg.SnapshotFile)
	}
	if cfg.SnapshotCmd != nil {
		t.Errorf("SnapshotCmd = %v, want nil", cfg.SnapshotCmd)
	}
	if cfg.SettingsFile != "" {
		t.Errorf("SettingsFile = %v, want empty", cfg.SettingsFile)
	}
	if cfg.IgnoredIssuesFile != "" {
		t.Errorf("IgnoredIssuesFile = %v, want empty", cfg.IgnoredIssuesFile)
	}
	if cfg.ShowIgnoredIssues {
		t.Error("ShowIgnoredIssues = true, want false")
	}
	if cfg.Output != OutputText {
		t.Errorf("Output = %v, want %v", cfg.Output, OutputText)
	}
	if cfg.MetricsFile != "" {
		t.Errorf("MetricsFile = %v, want empty", cfg.MetricsFile)
	}
	if cfg.FailOn != "" {
		t.Errorf("FailOn = %v, want empty", cfg.FailOn)
	}
}

func TestNewConfigWithEnvironmentVariables(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("PVE_DIAG_LOG_LEVEL", "debug")
	t.Setenv("PVE_DIAG_SNAPSHOT_FILE", "-")
	t.Setenv("PVE_DIAG_SNAPSHOT_CMD", "ssh, root@pve1, pve-collect")
	t.Setenv("PVE_DIAG_SETTINGS_FILE", "/etc/pve-diag/settings.yaml")
	t.Setenv("PVE_DIAG_IGNORED_ISSUES_FILE", "/etc/pve-diag/ignored.yaml")
	t.Setenv("PVE_DIAG_SHOW_IGNORED", "true")
	t.Setenv("PVE_DIAG_OUTPUT", OutputMarkdown)
	t.Setenv("PVE_DIAG_METRICS_FILE", "/var/lib/node_exporter/pve-diag.prom")
	t.Setenv("PVE_DIAG_FAIL_ON", "Critical")

	cfg := NewConfig()

	if !cfg.IsDebug() {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.SnapshotFile != "-" {
		t.Errorf("SnapshotFile = %v, want -", cfg.SnapshotFile)
	}
	wantCmd := []string{"ssh", "root@pve1", "pve-collect"}
	if !reflect.DeepEqual(cfg.SnapshotCmd, wantCmd) {
		t.Errorf("SnapshotCmd = %v, want %v", cfg.SnapshotCmd, wantCmd)
	}
	if cfg.SettingsFile != "/etc/pve-diag/settings.yaml" {
		t.Errorf("SettingsFile = %v, want /etc/pve-diag/settings.yaml", cfg.SettingsFile)
	}
	if cfg.IgnoredIssuesFile != "/etc/pve-diag/ignored.yaml" {
		t.Errorf("IgnoredIssuesFile = %v, want /etc/pve-diag/ignored.yaml", cfg.IgnoredIssuesFile)
	}
	if !cfg.ShowIgnoredIssues {
		t.Error("ShowIgnoredIssues = false, want true")
	}
	if cfg.Output != OutputMarkdown {
		t.Errorf("Output = %v, want %v", cfg.Output, OutputMarkdown)
	}
	if cfg.MetricsFile != "/var/lib/node_exporter/pve-diag.prom" {
		t.Errorf("MetricsFile = %v, want /var/lib/node_exporter/pve-diag.prom", cfg.MetricsFile)
	}
	if cfg.FailOn != "Critical" {
		t.Errorf("FailOn = %v, want Critical", cfg.FailOn)
	}
}

func TestIsDebug(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     bool
	}{
		{
			name:     "debug level",
			logLevel: "debug",
			want:     true,
		},
		{
			name:     "info level",
			logLevel: "info",
			want:     false,
		},
		{
			name:     "empty level",
			logLevel: "",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			if got := cfg.IsDebug(); got != tt.want {
				t.Errorf("IsDebug() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsOutputSupported(t *testing.T) {
	for _, format := range OutputFormats() {
		t.Run(format, func(t *testing.T) {
			cfg := &Config{Output: format}
			if !cfg.IsOutputSupported() {
				t.Errorf("IsOutputSupported() = false for %v", format)
			}
		})
	}

	for _, format := range []string{"", "xml", "Text", "csv"} {
		t.Run("unsupported "+format, func(t *testing.T) {
			cfg := &Config{Output: format}
			if cfg.IsOutputSupported() {
				t.Errorf("IsOutputSupported() = true for %q", format)
			}
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{
			name:         "true",
			envValue:     "true",
			defaultValue: false,
			want:         true,
		},
		{
			name:         "numeric false",
			envValue:     "0",
			defaultValue: true,
			want:         false,
		},
		{
			name:         "empty string",
			envValue:     "",
			defaultValue: true,
			want:         true,
		},
		{
			name:         "invalid bool",
			envValue:     "maybe",
			defaultValue: true,
			want:         true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testKey := "TEST_ENV_BOOL_KEY"
			t.Setenv(testKey, tt.envValue)

			if got := getEnvAsBool(testKey, tt.defaultValue); got != tt.want {
				t.Errorf("getEnvAsBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsStringSlice(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue []string
		want         []string
	}{
		{
			name:         "single value",
			envValue:     "pve-collect",
			defaultValue: nil,
			want:         []string{"pve-collect"},
		},
		{
			name:         "values with spaces",
			envValue:     " ssh , pve1 ,pve-collect ",
			defaultValue: nil,
			want:         []string{"ssh", "pve1", "pve-collect"},
		},
		{
			name:         "empty string",
			envValue:     "",
			defaultValue: []string{"default"},
			want:         []string{"default"},
		},
		{
			name:         "only commas",
			envValue:     ",,,",
			defaultValue: []string{"default"},
			want:         []string{"default"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testKey := "TEST_ENV_SLICE_KEY"
			t.Setenv(testKey, tt.envValue)

			got := getEnvAsStringSlice(testKey, tt.defaultValue)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("getEnvAsStringSlice() = %v, want %v", got, tt.want)
			}
		})
	}
}
