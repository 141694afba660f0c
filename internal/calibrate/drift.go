package calibrate

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/model"
)

// Detector compares a rolling window of samples against a baseline
// window and raises alerts when accuracy, optimism, or pessimism
// drifts beyond the threshold.
type Detector struct {
	cfg config.CalibrateConfig
}

// NewDetector returns a drift detector with the given window settings.
func NewDetector(cfg config.CalibrateConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect splits samples into baseline and rolling windows relative to
// now and emits one open alert per drifted metric. Windows short on
// samples produce no alerts.
func (d *Detector) Detect(samples []model.CalibrationSample, now time.Time) []model.DriftAlert {
	windowStart := now.AddDate(0, 0, -d.cfg.WindowDays)
	baselineStart := windowStart.AddDate(0, 0, -d.cfg.BaselineDays)

	var window, baseline []model.CalibrationSample
	for _, s := range samples {
		switch {
		case !s.CreatedAt.Before(windowStart):
			window = append(window, s)
		case !s.CreatedAt.Before(baselineStart):
			baseline = append(baseline, s)
		}
	}

	wb := ComputeBias(window)
	bb := ComputeBias(baseline)
	if wb.Known < d.cfg.MinWindowSamples || bb.Known < d.cfg.MinBaselineSamples {
		zap.L().Debug("drift detection skipped, not enough samples",
			zap.Int("window_known", wb.Known),
			zap.Int("baseline_known", bb.Known),
		)
		return nil
	}

	var alerts []model.DriftAlert
	check := func(metric string, baselineVal, observedVal float64) {
		magnitude := observedVal - baselineVal
		if abs(magnitude) < d.cfg.DriftThreshold {
			return
		}
		alerts = append(alerts, model.DriftAlert{
			ID:              uuid.NewString(),
			Metric:          metric,
			BaselineValue:   baselineVal,
			ObservedValue:   observedVal,
			Magnitude:       magnitude,
			BaselineSamples: bb.Known,
			WindowSamples:   wb.Known,
			WindowDays:      d.cfg.WindowDays,
			Status:          model.DriftStatusOpen,
			DetectedAt:      now.UTC(),
		})
		zap.L().Warn("calibration drift detected",
			zap.String("metric", metric),
			zap.Float64("baseline", baselineVal),
			zap.Float64("observed", observedVal),
		)
	}

	check("accuracy", bb.Accuracy, wb.Accuracy)
	check("optimism", bb.Optimism, wb.Optimism)
	check("pessimism", bb.Pessimism, wb.Pessimism)
	return alerts
}

// Acknowledge moves an open alert to acknowledged with the operator's
// note.
func Acknowledge(a *model.DriftAlert, action string, now time.Time) error {
	if a.Status != model.DriftStatusOpen {
		return eris.New(fmt.Sprintf("calibrate: cannot acknowledge alert in status %q", a.Status))
	}
	t := now.UTC()
	a.Status = model.DriftStatusAcknowledged
	a.Action = action
	a.AcknowledgedAt = &t
	return nil
}

// Resolve closes an acknowledged alert, recording the action taken.
func Resolve(a *model.DriftAlert, action string, now time.Time) error {
	if a.Status != model.DriftStatusAcknowledged {
		return eris.New(fmt.Sprintf("calibrate: cannot resolve alert in status %q", a.Status))
	}
	t := now.UTC()
	a.Status = model.DriftStatusResolved
	if action != "" {
		a.Action = action
	}
	a.ResolvedAt = &t
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
