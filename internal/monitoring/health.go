package monitoring

import (
	"fmt"
)

// HealthIssue flags one unhealthy reading in a snapshot. Delivery is
// the caller's concern; the core only evaluates.
type HealthIssue struct {
	Check    string `json:"check"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Thresholds bound what Evaluate considers healthy.
type Thresholds struct {
	// MaxFailRate is the tolerated run failure fraction; checked only
	// once at least MinFinishedRuns runs finished in the window.
	MaxFailRate     float64
	MinFinishedRuns int
	// MinSampleAccuracy is the floor for calibration prediction
	// accuracy over known-outcome samples.
	MinSampleAccuracy  float64
	MinSamplesForCheck int
}

// DefaultThresholds mirror the calibration defaults: 20% failure
// tolerance and 70% prediction accuracy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxFailRate:        0.2,
		MinFinishedRuns:    5,
		MinSampleAccuracy:  0.7,
		MinSamplesForCheck: 30,
	}
}

// Evaluate checks a snapshot against thresholds. An empty result means
// healthy.
func Evaluate(snap *MetricsSnapshot, t Thresholds) []HealthIssue {
	var issues []HealthIssue

	finished := snap.RunsCompleted + snap.RunsPartial + snap.RunsFailed
	if finished >= t.MinFinishedRuns && snap.FailRate > t.MaxFailRate {
		issues = append(issues, HealthIssue{
			Check:    "run_failure_rate",
			Severity: "high",
			Message: fmt.Sprintf("%.0f%% of %d runs failed in the last %dh (threshold %.0f%%)",
				snap.FailRate*100, finished, snap.LookbackHours, t.MaxFailRate*100),
		})
	}

	if snap.SamplesKnown >= t.MinSamplesForCheck && snap.SampleAccuracy < t.MinSampleAccuracy {
		issues = append(issues, HealthIssue{
			Check:    "calibration_accuracy",
			Severity: "medium",
			Message: fmt.Sprintf("prediction accuracy %.0f%% over %d samples (floor %.0f%%)",
				snap.SampleAccuracy*100, snap.SamplesKnown, t.MinSampleAccuracy*100),
		})
	}

	if snap.OpenDriftAlerts > 0 {
		issues = append(issues, HealthIssue{
			Check:    "drift_alerts",
			Severity: "medium",
			Message:  fmt.Sprintf("%d unresolved drift alerts", snap.OpenDriftAlerts),
		})
	}
	return issues
}
