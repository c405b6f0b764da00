package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TimeSeries selects the metric window used for averaged checks
type TimeSeries string

const (
	TimeSeriesDay  TimeSeries = "day"
	TimeSeriesWeek TimeSeries = "week"
)

// Threshold is a warning/critical pair. A zero on either side disables the check.
type Threshold struct {
	Warning  float64 `yaml:"warning" json:"warning"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// Enabled reports whether both bounds are set
func (t Threshold) Enabled() bool {
	return t.Warning != 0 && t.Critical != 0
}

// HostThreshold holds the averaged-metric thresholds of a node or guest type
type HostThreshold struct {
	TimeSeries TimeSeries `yaml:"timeSeries" json:"timeSeries"`
	CPU        Threshold  `yaml:"cpu" json:"cpu"`
	Memory     Threshold  `yaml:"memory" json:"memory"`
	Network    Threshold  `yaml:"network" json:"network"`
}

// StorageThreshold holds the storage usage thresholds
type StorageThreshold struct {
	TimeSeries TimeSeries `yaml:"timeSeries" json:"timeSeries"`
	Threshold  Threshold  `yaml:"threshold" json:"threshold"`
}

// Settings holds the threshold configuration of a diagnostic run
type Settings struct {
	Storage    StorageThreshold `yaml:"storage" json:"storage"`
	Node       HostThreshold    `yaml:"node" json:"node"`
	Qemu       HostThreshold    `yaml:"qemu" json:"qemu"`
	Lxc        HostThreshold    `yaml:"lxc" json:"lxc"`
	SSDWearout Threshold        `yaml:"ssdWearout" json:"ssdWearout"`
}

// DefaultSettings returns the settings used when no file is given.
// Only the SSD wearout check is enabled out of the box.
func DefaultSettings() *Settings {
	return &Settings{
		Storage:    StorageThreshold{TimeSeries: TimeSeriesDay},
		Node:       HostThreshold{TimeSeries: TimeSeriesDay},
		Qemu:       HostThreshold{TimeSeries: TimeSeriesDay},
		Lxc:        HostThreshold{TimeSeries: TimeSeriesDay},
		SSDWearout: Threshold{Warning: 70, Critical: 80},
	}
}

// Validate checks the time series names
func (s *Settings) Validate() error {
	for name, ts := range map[string]TimeSeries{
		"storage": s.Storage.TimeSeries,
		"node":    s.Node.TimeSeries,
		"qemu":    s.Qemu.TimeSeries,
		"lxc":     s.Lxc.TimeSeries,
	} {
		if ts != TimeSeriesDay && ts != TimeSeriesWeek {
			return fmt.Errorf("%s: invalid time series %q (must be %s or %s)", name, ts, TimeSeriesDay, TimeSeriesWeek)
		}
	}
	return nil
}

// DisabledChecks lists the thresholds switched off by a zero bound
func (s *Settings) DisabledChecks() []string {
	checks := []struct {
		name      string
		threshold Threshold
	}{
		{"storage", s.Storage.Threshold},
		{"node.cpu", s.Node.CPU},
		{"node.memory", s.Node.Memory},
		{"node.network", s.Node.Network},
		{"qemu.cpu", s.Qemu.CPU},
		{"qemu.memory", s.Qemu.Memory},
		{"qemu.network", s.Qemu.Network},
		{"lxc.cpu", s.Lxc.CPU},
		{"lxc.memory", s.Lxc.Memory},
		{"lxc.network", s.Lxc.Network},
		{"ssdWearout", s.SSDWearout},
	}

	var disabled []string
	for _, c := range checks {
		if !c.threshold.Enabled() {
			disabled = append(disabled, c.name)
		}
	}
	return disabled
}

// LoadSettings reads a settings file. Keys missing from the file keep their defaults.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}

	return settings, nil
}

// WriteSettings writes the settings as YAML
func WriteSettings(path string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
