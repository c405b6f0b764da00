// Package metrics exports the finding counts of a run as a Prometheus textfile.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/runningman84/pve-diag/pkg/models"
	"k8s.io/klog/v2"
)

// Exporter holds the gauges of one diagnostic run
type Exporter struct {
	registry *prometheus.Registry

	// findings counts results per context, gravity and suppression state
	findings *prometheus.GaugeVec
	// lastRun is the unix time the snapshot was evaluated
	lastRun prometheus.Gauge
	// snapshotAge is the age of the snapshot at evaluation time
	snapshotAge prometheus.Gauge
	// duration is the wall time of the evaluation
	duration prometheus.Gauge
}

// NewExporter creates an exporter backed by its own registry
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Exporter{
		registry: registry,
		findings: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pve_diag_findings",
				Help: "Number of diagnostic findings of the last run",
			},
			[]string{"context", "gravity", "ignored"},
		),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pve_diag_last_run_timestamp_seconds",
			Help: "Unix time of the last diagnostic run",
		}),
		snapshotAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pve_diag_snapshot_age_seconds",
			Help: "Age of the evaluated snapshot when the run started",
		}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pve_diag_run_duration_seconds",
			Help: "Duration of the last diagnostic run",
		}),
	}
}

// Observe records the results of a run. Every context/gravity pair is
// exported, with zero when nothing was found.
func (e *Exporter) Observe(results []*models.DiagnosticResult, snapshotDate, runAt time.Time, duration time.Duration) {
	e.findings.Reset()
	for _, ctx := range models.Contexts() {
		for _, gravity := range models.Gravities() {
			for _, ignored := range []bool{false, true} {
				e.findings.WithLabelValues(ctx, gravity, strconv.FormatBool(ignored)).Set(0)
			}
		}
	}

	for _, r := range results {
		e.findings.WithLabelValues(r.Context.String(), r.Gravity.String(), strconv.FormatBool(r.IsIgnoredIssue)).Inc()
	}

	e.lastRun.Set(float64(runAt.Unix()))
	e.snapshotAge.Set(runAt.Sub(snapshotDate).Seconds())
	e.duration.Set(duration.Seconds())
}

// WriteTextfile writes the registry in the node exporter textfile format
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	klog.V(1).Infof("Wrote metrics to %s", path)
	return nil
}

// Registry exposes the underlying registry
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}
