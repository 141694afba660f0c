// Package monitoring takes point-in-time health snapshots of the audit
// system from the store: run outcomes, score averages, calibration
// accuracy, and open drift alerts.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/findablehq/findable-cli/internal/model"
	"github.com/findablehq/findable-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of system health.
type MetricsSnapshot struct {
	// Run metrics within the lookback window.
	RunsTotal     int     `json:"runs_total"`
	RunsCompleted int     `json:"runs_completed"`
	RunsPartial   int     `json:"runs_partial"`
	RunsFailed    int     `json:"runs_failed"`
	RunsQueued    int     `json:"runs_queued"`
	RunsActive    int     `json:"runs_active"`
	FailRate      float64 `json:"fail_rate"`
	AvgScore      float64 `json:"avg_score"`
	ScoredRuns    int     `json:"scored_runs"`

	// Calibration metrics within the lookback window.
	Samples          int     `json:"samples"`
	SamplesKnown     int     `json:"samples_known"`
	SampleAccuracy   float64 `json:"sample_accuracy"`
	OpenDriftAlerts  int     `json:"open_drift_alerts"`
	ActiveConfigName string  `json:"active_config_name,omitempty"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers snapshots from the store.
type Collector struct {
	store store.Store
	now   func() time.Time
}

// NewCollector creates a metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{Since: &cutoff, Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}
	snap.RunsTotal = len(runs)
	var totalScore float64
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusCompleted:
			snap.RunsCompleted++
		case model.RunStatusCompletedPartial:
			snap.RunsPartial++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusQueued:
			snap.RunsQueued++
		default:
			if !r.Status.IsTerminal() {
				snap.RunsActive++
			}
		}
		if r.Score != nil {
			totalScore += r.Score.TotalScore
			snap.ScoredRuns++
		}
	}
	finished := snap.RunsCompleted + snap.RunsPartial + snap.RunsFailed
	if finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.ScoredRuns > 0 {
		snap.AvgScore = totalScore / float64(snap.ScoredRuns)
	}

	samples, err := c.store.ListSamples(ctx, store.SampleFilter{Since: &cutoff})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list samples")
	}
	snap.Samples = len(samples)
	accurate := 0
	for _, s := range samples {
		if s.OutcomeMatch == model.OutcomeUnknown {
			continue
		}
		snap.SamplesKnown++
		if s.PredictionAccurate {
			accurate++
		}
	}
	if snap.SamplesKnown > 0 {
		snap.SampleAccuracy = float64(accurate) / float64(snap.SamplesKnown)
	}

	alerts, err := c.store.ListDriftAlerts(ctx, model.DriftStatusOpen)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list drift alerts")
	}
	snap.OpenDriftAlerts = len(alerts)

	if cfg, err := c.store.GetActiveConfig(ctx); err == nil && cfg != nil {
		snap.ActiveConfigName = cfg.Name
	}
	return snap, nil
}
