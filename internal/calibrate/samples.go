package calibrate

import (
	"time"

	"github.com/google/uuid"

	"github.com/findablehq/findable-cli/internal/model"
)

// Observation is what actually happened for one question when checked
// against a real answer engine.
type Observation struct {
	Mentioned bool
	Cited     bool
	// Known is false when no ground truth was collected; the sample is
	// still logged with an unknown outcome.
	Known bool
}

// BuildSample pairs one simulated question result with its observed
// outcome. Prediction is positive when the simulator said fully or
// partially answerable; observation is positive when the engine
// mentioned or cited the site.
func BuildSample(siteID, runID string, qr model.QuestionResult, obs Observation, expID string, arm model.Arm, now time.Time) model.CalibrationSample {
	s := model.CalibrationSample{
		ID:               uuid.NewString(),
		SiteID:           siteID,
		RunID:            runID,
		QuestionID:       qr.QuestionID,
		QuestionCategory: qr.Category,
		Difficulty:       qr.Difficulty,
		SimAnswerability: qr.Answerability,
		SimScore:         qr.Score,
		SimSignalsFound:  qr.SignalsFound,
		SimSignalsTotal:  qr.SignalsTotal,
		ObsMentioned:     obs.Mentioned,
		ObsCited:         obs.Cited,
		ExperimentID:     expID,
		Arm:              arm,
		CreatedAt:        now.UTC(),
	}
	s.OutcomeMatch = classifyOutcome(qr.Answerability, obs)
	s.PredictionAccurate = s.OutcomeMatch == model.OutcomeTruePositive ||
		s.OutcomeMatch == model.OutcomeTrueNegative
	return s
}

func classifyOutcome(pred model.Answerability, obs Observation) model.OutcomeMatch {
	if !obs.Known {
		return model.OutcomeUnknown
	}
	predicted := pred == model.AnswerabilityFully || pred == model.AnswerabilityPartially
	observed := obs.Mentioned || obs.Cited
	switch {
	case predicted && observed:
		return model.OutcomeTruePositive
	case !predicted && !observed:
		return model.OutcomeTrueNegative
	case predicted && !observed:
		return model.OutcomeFalsePositive
	default:
		return model.OutcomeFalseNegative
	}
}

// BiasMetrics summarize how a set of samples skews.
type BiasMetrics struct {
	Samples       int     `json:"samples"`
	Known         int     `json:"known"`
	Accuracy      float64 `json:"accuracy"`
	Optimism      float64 `json:"optimism"`
	Pessimism     float64 `json:"pessimism"`
	TruePositive  int     `json:"true_positive"`
	TrueNegative  int     `json:"true_negative"`
	FalsePositive int     `json:"false_positive"`
	FalseNegative int     `json:"false_negative"`
}

// ComputeBias tallies outcome matches. Optimism is the false-positive
// rate over known samples, pessimism the false-negative rate; unknown
// outcomes are excluded from the rates.
func ComputeBias(samples []model.CalibrationSample) BiasMetrics {
	m := BiasMetrics{Samples: len(samples)}
	for _, s := range samples {
		switch s.OutcomeMatch {
		case model.OutcomeTruePositive:
			m.TruePositive++
		case model.OutcomeTrueNegative:
			m.TrueNegative++
		case model.OutcomeFalsePositive:
			m.FalsePositive++
		case model.OutcomeFalseNegative:
			m.FalseNegative++
		}
	}
	m.Known = m.TruePositive + m.TrueNegative + m.FalsePositive + m.FalseNegative
	if m.Known > 0 {
		known := float64(m.Known)
		m.Accuracy = float64(m.TruePositive+m.TrueNegative) / known
		m.Optimism = float64(m.FalsePositive) / known
		m.Pessimism = float64(m.FalseNegative) / known
	}
	return m
}
