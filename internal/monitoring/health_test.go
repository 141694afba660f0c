package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Healthy(t *testing.T) {
	snap := &MetricsSnapshot{
		RunsCompleted:  8,
		RunsFailed:     1,
		FailRate:       1.0 / 9.0,
		SamplesKnown:   50,
		SampleAccuracy: 0.85,
	}
	assert.Empty(t, Evaluate(snap, DefaultThresholds()))
}

func TestEvaluate_HighFailRate(t *testing.T) {
	snap := &MetricsSnapshot{
		RunsCompleted: 5,
		RunsFailed:    5,
		FailRate:      0.5,
		LookbackHours: 24,
	}
	issues := Evaluate(snap, DefaultThresholds())
	require.Len(t, issues, 1)
	assert.Equal(t, "run_failure_rate", issues[0].Check)
	assert.Equal(t, "high", issues[0].Severity)
	assert.Contains(t, issues[0].Message, "50% of 10 runs failed")
}

func TestEvaluate_TooFewRunsSkipsFailRateCheck(t *testing.T) {
	snap := &MetricsSnapshot{
		RunsFailed: 2,
		FailRate:   1.0,
	}
	assert.Empty(t, Evaluate(snap, DefaultThresholds()))
}

func TestEvaluate_LowCalibrationAccuracy(t *testing.T) {
	snap := &MetricsSnapshot{
		SamplesKnown:   40,
		SampleAccuracy: 0.55,
	}
	issues := Evaluate(snap, DefaultThresholds())
	require.Len(t, issues, 1)
	assert.Equal(t, "calibration_accuracy", issues[0].Check)
	assert.Contains(t, issues[0].Message, "55%")
}

func TestEvaluate_TooFewSamplesSkipsAccuracyCheck(t *testing.T) {
	snap := &MetricsSnapshot{
		SamplesKnown:   10,
		SampleAccuracy: 0.1,
	}
	assert.Empty(t, Evaluate(snap, DefaultThresholds()))
}

func TestEvaluate_OpenDriftAlerts(t *testing.T) {
	snap := &MetricsSnapshot{OpenDriftAlerts: 2}
	issues := Evaluate(snap, DefaultThresholds())
	require.Len(t, issues, 1)
	assert.Equal(t, "drift_alerts", issues[0].Check)
	assert.Contains(t, issues[0].Message, "2 unresolved drift alerts")
}

func TestEvaluate_StacksIssues(t *testing.T) {
	snap := &MetricsSnapshot{
		RunsCompleted:   2,
		RunsFailed:      3,
		FailRate:        0.6,
		SamplesKnown:    40,
		SampleAccuracy:  0.5,
		OpenDriftAlerts: 1,
	}
	issues := Evaluate(snap, DefaultThresholds())
	assert.Len(t, issues, 3)
}
