package calibrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/model"
)

func driftConfig() config.CalibrateConfig {
	return config.CalibrateConfig{
		WindowDays:         7,
		BaselineDays:       30,
		MinWindowSamples:   5,
		MinBaselineSamples: 5,
		DriftThreshold:     0.15,
	}
}

// samplesAt builds n samples with the given outcome created at ts.
func samplesAt(n int, outcome model.OutcomeMatch, ts time.Time) []model.CalibrationSample {
	out := make([]model.CalibrationSample, n)
	for i := range out {
		out[i] = model.CalibrationSample{OutcomeMatch: outcome, CreatedAt: ts}
	}
	return out
}

func TestDetect_AccuracyDrop(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -2)
	old := now.AddDate(0, 0, -20)

	// Baseline is all accurate, the rolling window all wrong.
	var samples []model.CalibrationSample
	samples = append(samples, samplesAt(10, model.OutcomeTruePositive, old)...)
	samples = append(samples, samplesAt(10, model.OutcomeFalsePositive, recent)...)

	alerts := NewDetector(driftConfig()).Detect(samples, now)

	require.Len(t, alerts, 2)
	byMetric := map[string]model.DriftAlert{}
	for _, a := range alerts {
		byMetric[a.Metric] = a
	}

	acc, ok := byMetric["accuracy"]
	require.True(t, ok)
	assert.InDelta(t, 1.0, acc.BaselineValue, 1e-9)
	assert.InDelta(t, 0.0, acc.ObservedValue, 1e-9)
	assert.InDelta(t, -1.0, acc.Magnitude, 1e-9)
	assert.Equal(t, model.DriftStatusOpen, acc.Status)
	assert.Equal(t, 10, acc.BaselineSamples)
	assert.Equal(t, 10, acc.WindowSamples)

	opt, ok := byMetric["optimism"]
	require.True(t, ok)
	assert.InDelta(t, 1.0, opt.ObservedValue, 1e-9)
}

func TestDetect_StableMetricsNoAlerts(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	var samples []model.CalibrationSample
	samples = append(samples, samplesAt(10, model.OutcomeTruePositive, now.AddDate(0, 0, -20))...)
	samples = append(samples, samplesAt(10, model.OutcomeTruePositive, now.AddDate(0, 0, -2))...)

	assert.Empty(t, NewDetector(driftConfig()).Detect(samples, now))
}

func TestDetect_InsufficientSamples(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	var samples []model.CalibrationSample
	samples = append(samples, samplesAt(10, model.OutcomeTruePositive, now.AddDate(0, 0, -20))...)
	samples = append(samples, samplesAt(2, model.OutcomeFalsePositive, now.AddDate(0, 0, -2))...)

	assert.Empty(t, NewDetector(driftConfig()).Detect(samples, now))
}

func TestDetect_IgnoresSamplesOlderThanBaseline(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	var samples []model.CalibrationSample
	// Ancient samples fall outside both windows.
	samples = append(samples, samplesAt(50, model.OutcomeFalseNegative, now.AddDate(0, 0, -200))...)
	samples = append(samples, samplesAt(10, model.OutcomeTruePositive, now.AddDate(0, 0, -20))...)
	samples = append(samples, samplesAt(10, model.OutcomeTruePositive, now.AddDate(0, 0, -2))...)

	assert.Empty(t, NewDetector(driftConfig()).Detect(samples, now))
}

func TestAcknowledgeAndResolve(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	alert := model.DriftAlert{Status: model.DriftStatusOpen}

	require.NoError(t, Acknowledge(&alert, "reviewing sample quality", now))
	assert.Equal(t, model.DriftStatusAcknowledged, alert.Status)
	assert.Equal(t, "reviewing sample quality", alert.Action)
	require.NotNil(t, alert.AcknowledgedAt)

	// Double acknowledge is rejected.
	assert.Error(t, Acknowledge(&alert, "again", now))

	require.NoError(t, Resolve(&alert, "retrained thresholds", now.Add(time.Hour)))
	assert.Equal(t, model.DriftStatusResolved, alert.Status)
	assert.Equal(t, "retrained thresholds", alert.Action)
	require.NotNil(t, alert.ResolvedAt)
}

func TestResolve_RequiresAcknowledged(t *testing.T) {
	alert := model.DriftAlert{Status: model.DriftStatusOpen}
	assert.Error(t, Resolve(&alert, "", time.Now()))
}
