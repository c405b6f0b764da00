package diagnostic

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/runningman84/pve-diag/pkg/config"
	"github.com/runningman84/pve-diag/pkg/models"
)

// Measure is one value handed to a threshold check
type Measure struct {
	Usage  float64
	Size   float64
	ID     string
	Prefix string
}

// ThresholdCheck classifies measures against a warning/critical pair
type ThresholdCheck struct {
	Threshold  config.Threshold
	ErrorCode  string
	Context    models.Context
	SubContext string

	// IsValue means Usage already is the percentage; otherwise it is Usage/Size*100
	IsValue bool
	// FormatBytes appends "X of Y" in human readable bytes to the description
	FormatBytes bool
}

// Classify maps a usage to a gravity band.
//
// Bands are [warning, critical) -> Warning and [critical, critical*100) -> Critical.
// Nothing is reported below warning, at or above critical*100, or when either
// bound is zero.
func Classify(usage, size float64, threshold config.Threshold, isValue bool) (models.Gravity, float64, bool) {
	if !threshold.Enabled() {
		return 0, 0, false
	}

	value := usage
	if !isValue {
		if size <= 0 {
			return 0, 0, false
		}
		value = usage / size * 100
	}
	value = math.Round(value*10) / 10

	switch {
	case value >= threshold.Warning && value < threshold.Critical:
		return models.GravityWarning, value, true
	case value >= threshold.Critical && value < threshold.Critical*100:
		return models.GravityCritical, value, true
	}
	return 0, value, false
}

// Evaluate returns a finding for the measure, or nil when it is inside the limits
func (c ThresholdCheck) Evaluate(m Measure) *models.DiagnosticResult {
	gravity, value, ok := Classify(m.Usage, m.Size, c.Threshold, c.IsValue)
	if !ok {
		return nil
	}

	description := fmt.Sprintf("%s usage %.1f%%", m.Prefix, value)
	if c.FormatBytes {
		description += fmt.Sprintf(" - %s of %s", formatBytes(m.Usage), formatBytes(m.Size))
	}

	return &models.DiagnosticResult{
		ID:          m.ID,
		ErrorCode:   c.ErrorCode,
		Context:     c.Context,
		SubContext:  c.SubContext,
		Description: description,
		Gravity:     gravity,
	}
}

func formatBytes(v float64) string {
	if v <= 0 {
		return humanize.IBytes(0)
	}
	return humanize.IBytes(uint64(v))
}

// average returns the mean of fn over the points; false for an empty series
func average(points []models.MetricPoint, fn func(models.MetricPoint) float64) (float64, bool) {
	if len(points) == 0 {
		return 0, false
	}
	var sum float64
	for _, p := range points {
		sum += fn(p)
	}
	return sum / float64(len(points)), true
}

// window picks the configured series
func window(series models.MetricSeries, ts config.TimeSeries) []models.MetricPoint {
	if ts == config.TimeSeriesWeek {
		return series.Week
	}
	return series.Day
}

func metricLabel(what string, ts config.TimeSeries) string {
	return fmt.Sprintf("%s (rrd %s AVERAGE)", what, ts)
}

func usageCheck(ctx models.Context, t config.Threshold, isValue, formatBytes bool) ThresholdCheck {
	return ThresholdCheck{
		Threshold:   t,
		ErrorCode:   "WV0002",
		Context:     ctx,
		SubContext:  "Usage",
		IsValue:     isValue,
		FormatBytes: formatBytes,
	}
}

// checkHostMetrics runs the cpu, memory and network checks shared by nodes and guests
func (e *evaluator) checkHostMetrics(ctx models.Context, id string, thr config.HostThreshold, points []models.MetricPoint) {
	if cpu, ok := average(points, func(p models.MetricPoint) float64 { return p.CPU }); ok {
		e.add(usageCheck(ctx, thr.CPU, true, false).Evaluate(Measure{Usage: cpu * 100, ID: id, Prefix: metricLabel("CPU", thr.TimeSeries)}))
	}

	mem, ok1 := average(points, func(p models.MetricPoint) float64 { return p.Mem })
	maxMem, ok2 := average(points, func(p models.MetricPoint) float64 { return p.MaxMem })
	if ok1 && ok2 {
		e.add(usageCheck(ctx, thr.Memory, false, true).Evaluate(Measure{Usage: mem, Size: maxMem, ID: id, Prefix: metricLabel("Memory", thr.TimeSeries)}))
	}

	if netIn, ok := average(points, func(p models.MetricPoint) float64 { return p.NetIn }); ok {
		e.add(usageCheck(ctx, thr.Network, true, false).Evaluate(Measure{Usage: netIn, ID: id, Prefix: metricLabel("NetIn", thr.TimeSeries)}))
	}
	if netOut, ok := average(points, func(p models.MetricPoint) float64 { return p.NetOut }); ok {
		e.add(usageCheck(ctx, thr.Network, true, false).Evaluate(Measure{Usage: netOut, ID: id, Prefix: metricLabel("NetOut", thr.TimeSeries)}))
	}
}
