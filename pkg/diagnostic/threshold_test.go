package diagnostic

import (
	"testing"

	"github.com/runningman84/pve-diag/pkg/config"
	"github.com/runningman84/pve-diag/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	thr := config.Threshold{Warning: 70, Critical: 80}

	tests := []struct {
		name     string
		usage    float64
		size     float64
		isValue  bool
		wantOK   bool
		want     models.Gravity
		wantUsed float64
	}{
		{name: "below warning", usage: 69.9, isValue: true, wantOK: false},
		{name: "at warning", usage: 70, isValue: true, wantOK: true, want: models.GravityWarning, wantUsed: 70},
		{name: "just below critical", usage: 79.9, isValue: true, wantOK: true, want: models.GravityWarning, wantUsed: 79.9},
		{name: "at critical", usage: 80, isValue: true, wantOK: true, want: models.GravityCritical, wantUsed: 80},
		{name: "way above critical", usage: 8000, isValue: true, wantOK: false},
		{name: "percentage of size", usage: 85, size: 100, wantOK: true, want: models.GravityCritical, wantUsed: 85},
		{name: "rounded to one decimal", usage: 69.96, isValue: true, wantOK: true, want: models.GravityWarning, wantUsed: 70},
		{name: "zero size", usage: 85, size: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gravity, value, ok := Classify(tt.usage, tt.size, thr, tt.isValue)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, gravity)
				assert.InDelta(t, tt.wantUsed, value, 0.001)
			}
		})
	}
}

func TestClassifyDisabledThreshold(t *testing.T) {
	for _, thr := range []config.Threshold{
		{},
		{Warning: 70},
		{Critical: 80},
	} {
		for _, usage := range []float64{0, 50, 75, 85, 100, 1e9} {
			_, _, ok := Classify(usage, 0, thr, true)
			assert.False(t, ok, "threshold %+v usage %v", thr, usage)
		}
	}
}

func TestThresholdCheckEvaluate(t *testing.T) {
	check := ThresholdCheck{
		Threshold:   config.Threshold{Warning: 70, Critical: 80},
		ErrorCode:   "CS0001",
		Context:     models.ContextStorage,
		SubContext:  "Usage",
		FormatBytes: true,
	}

	r := check.Evaluate(Measure{Usage: 85, Size: 100, ID: "storage/pve1/local", Prefix: "Storage"})
	require.NotNil(t, r)
	assert.Equal(t, models.GravityCritical, r.Gravity)
	assert.Equal(t, "storage/pve1/local", r.ID)
	assert.Contains(t, r.Description, "85.0%")
	assert.Contains(t, r.Description, "85 B of 100 B")

	assert.Nil(t, check.Evaluate(Measure{Usage: 10, Size: 100, ID: "x", Prefix: "Storage"}))
}

func TestAverageEmptySeries(t *testing.T) {
	_, ok := average(nil, func(p models.MetricPoint) float64 { return p.CPU })
	assert.False(t, ok)

	v, ok := average([]models.MetricPoint{{CPU: 0.2}, {CPU: 0.4}}, func(p models.MetricPoint) float64 { return p.CPU })
	assert.True(t, ok)
	assert.InDelta(t, 0.3, v, 0.0001)
}

func TestWindow(t *testing.T) {
	series := models.MetricSeries{
		Day:  []models.MetricPoint{{CPU: 1}},
		Week: []models.MetricPoint{{CPU: 2}, {CPU: 3}},
	}
	assert.Len(t, window(series, config.TimeSeriesDay), 1)
	assert.Len(t, window(series, config.TimeSeriesWeek), 2)
}
