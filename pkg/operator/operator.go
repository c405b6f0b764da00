package operator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/runningman84/pve-diag/pkg/config"
	"github.com/runningman84/pve-diag/pkg/diagnostic"
	"github.com/runningman84/pve-diag/pkg/metrics"
	"github.com/runningman84/pve-diag/pkg/models"
	"github.com/runningman84/pve-diag/pkg/parser"
	"github.com/runningman84/pve-diag/pkg/render"
	"github.com/runningman84/pve-diag/pkg/source"
	"k8s.io/klog/v2"
)

// ErrFailOnReached is returned when an active finding reaches the configured fail-on gravity
var ErrFailOnReached = errors.New("findings reached fail-on gravity")

// Operator runs one diagnostic pass: load, evaluate, render and export
type Operator struct {
	config  *config.Config
	loader  *source.Loader
	metrics *metrics.Exporter
	out     io.Writer
	now     func() time.Time
}

// NewOperator creates a new operator instance writing the report to stdout
func NewOperator(cfg *config.Config) *Operator {
	return &Operator{
		config:  cfg,
		loader:  source.NewLoader(cfg),
		metrics: metrics.NewExporter(),
		out:     os.Stdout,
		now:     time.Now,
	}
}

// SetOutput redirects the rendered report
func (o *Operator) SetOutput(w io.Writer) {
	o.out = w
}

// Run executes the diagnostic pass. Findings never make Run fail unless
// fail-on is configured, in which case ErrFailOnReached is wrapped.
func (o *Operator) Run(ctx context.Context) error {
	start := o.now()

	o.logConfig()

	if !o.config.IsOutputSupported() {
		return fmt.Errorf("unsupported output format %q (must be one of %v)", o.config.Output, config.OutputFormats())
	}

	failOn, hasFailOn, err := o.failOnGravity()
	if err != nil {
		return err
	}

	settings, err := o.loadSettings()
	if err != nil {
		return err
	}

	rules, err := parser.LoadIgnoreRules(o.config.IgnoredIssuesFile)
	if err != nil {
		return fmt.Errorf("failed to load ignored issues: %w", err)
	}
	if len(rules) > 0 {
		klog.Infof("Loaded %d ignore rule(s) from %s", len(rules), o.config.IgnoredIssuesFile)
	}

	snapshot, err := o.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	klog.Infof("Snapshot from %s with %d resource(s) and %d node detail(s)",
		snapshot.Date.Format("2006-01-02 15:04:05"), len(snapshot.Resources), len(snapshot.Nodes))

	results, err := diagnostic.Analyze(snapshot, settings, rules)
	if err != nil {
		return fmt.Errorf("failed to analyze snapshot: %w", err)
	}

	if err := render.Render(o.out, o.config.Output, results, o.config.ShowIgnoredIssues); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if o.config.MetricsFile != "" {
		o.metrics.Observe(results, snapshot.Date, start, o.now().Sub(start))
		if err := o.metrics.WriteTextfile(o.config.MetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		klog.V(1).Infof("Wrote metrics to %s", o.config.MetricsFile)
	}

	o.logSummary(results)

	if hasFailOn {
		if count := countAtLeast(results, failOn); count > 0 {
			return fmt.Errorf("%w: %d finding(s) at or above %s", ErrFailOnReached, count, failOn)
		}
	}

	return nil
}

func (o *Operator) logConfig() {
	klog.Info("Current config")
	klog.Infof("Log level: %s", o.config.LogLevel)
	if len(o.config.SnapshotCmd) > 0 {
		klog.Infof("Snapshot command: %v", o.config.SnapshotCmd)
	} else {
		klog.Infof("Snapshot file: %s", o.config.SnapshotFile)
	}
	if o.config.SettingsFile != "" {
		klog.Infof("Settings file: %s", o.config.SettingsFile)
	} else {
		klog.Infof("Settings file: built-in defaults")
	}
	if o.config.IgnoredIssuesFile != "" {
		klog.Infof("Ignored issues file: %s (show: %t)", o.config.IgnoredIssuesFile, o.config.ShowIgnoredIssues)
	} else {
		klog.Infof("Ignored issues file: none")
	}
	klog.Infof("Output: %s", o.config.Output)
	if o.config.MetricsFile != "" {
		klog.Infof("Metrics file: %s", o.config.MetricsFile)
	}
	if o.config.FailOn != "" {
		klog.Infof("Fail on: %s", o.config.FailOn)
	}
}

func (o *Operator) loadSettings() (*config.Settings, error) {
	settings := config.DefaultSettings()
	if o.config.SettingsFile != "" {
		loaded, err := config.LoadSettings(o.config.SettingsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		settings = loaded
	}

	if disabled := settings.DisabledChecks(); len(disabled) > 0 {
		klog.Warningf("Threshold checks disabled by a zero bound: %v", disabled)
	}
	return settings, nil
}

func (o *Operator) failOnGravity() (models.Gravity, bool, error) {
	if o.config.FailOn == "" {
		return 0, false, nil
	}
	gravity, err := models.ParseGravity(o.config.FailOn)
	if err != nil {
		return 0, false, fmt.Errorf("invalid fail-on gravity: %w", err)
	}
	return gravity, true, nil
}

// countAtLeast counts the unsuppressed findings whose gravity is at or above the given one
func countAtLeast(results []*models.DiagnosticResult, gravity models.Gravity) int {
	count := 0
	for _, r := range results {
		if !r.IsIgnoredIssue && r.Gravity >= gravity {
			count++
		}
	}
	return count
}

func (o *Operator) logSummary(results []*models.DiagnosticResult) {
	counts := make(map[models.Gravity]int)
	ignored := 0
	for _, r := range results {
		if r.IsIgnoredIssue {
			ignored++
			continue
		}
		counts[r.Gravity]++
	}

	klog.Infof("Run completed - %d finding(s): %d critical, %d warning, %d info, %d ignored",
		len(results), counts[models.GravityCritical], counts[models.GravityWarning], counts[models.GravityInfo], ignored)
}
