package calibrate

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/findablehq/findable-cli/internal/model"
)

// Proposal is an offline weight-optimization result. It never touches
// the active config; an operator promotes the draft explicitly.
type Proposal struct {
	Draft        model.CalibrationConfig `json:"draft"`
	BaseConfigID string                  `json:"base_config_id"`
	Samples      int                     `json:"samples"`
	CurrentBias  BiasMetrics             `json:"current_bias"`
	// ThresholdShift is the fully-answerable threshold delta the
	// search settled on.
	ThresholdShift float64 `json:"threshold_shift"`
	Rationale      string  `json:"rationale"`
}

// ProposeThresholds searches answerability-threshold shifts that
// minimize absolute bias (|optimism - pessimism|) over the sample set.
// It requires minSamples known outcomes and returns a draft config
// derived from base.
func ProposeThresholds(base model.CalibrationConfig, samples []model.CalibrationSample, minSamples int, now time.Time) (*Proposal, error) {
	bias := ComputeBias(samples)
	if bias.Known < minSamples {
		return nil, eris.New(fmt.Sprintf("calibrate: %d known samples, need %d", bias.Known, minSamples))
	}

	bestShift := 0.0
	bestBias := abs(bias.Optimism - bias.Pessimism)
	for _, shift := range []float64{-0.15, -0.10, -0.05, 0.05, 0.10, 0.15} {
		fully := base.Thresholds.Fully + shift
		partially := base.Thresholds.Partially + shift/2
		if fully <= partially || fully > 1 || partially < 0 {
			continue
		}
		b := replaySamples(samples, fully, partially)
		score := abs(b.Optimism - b.Pessimism)
		if score < bestBias {
			bestBias = score
			bestShift = shift
		}
	}

	draft := base
	draft.ID = uuid.NewString()
	draft.Name = fmt.Sprintf("%s-draft-%s", base.Name, now.UTC().Format("20060102"))
	draft.Status = model.ConfigStatusDraft
	draft.Thresholds.Fully += bestShift
	draft.Thresholds.Partially += bestShift / 2
	draft.CreatedAt = now.UTC()
	draft.UpdatedAt = now.UTC()
	if err := draft.Validate(); err != nil {
		return nil, eris.Wrap(err, "calibrate: proposed draft invalid")
	}

	rationale := "current thresholds already minimize bias; no shift proposed"
	if bestShift != 0 {
		rationale = fmt.Sprintf("shifting fully-answerable threshold by %+.2f reduces |optimism-pessimism| from %.3f to %.3f",
			bestShift, abs(bias.Optimism-bias.Pessimism), bestBias)
	}

	zap.L().Info("weight optimization proposal",
		zap.Int("samples", bias.Known),
		zap.Float64("threshold_shift", bestShift),
	)
	return &Proposal{
		Draft:          draft,
		BaseConfigID:   base.ID,
		Samples:        bias.Known,
		CurrentBias:    bias,
		ThresholdShift: bestShift,
		Rationale:      rationale,
	}, nil
}

// replaySamples reclassifies each sample's combined score under
// candidate thresholds and recomputes bias against the recorded
// observations.
func replaySamples(samples []model.CalibrationSample, fully, partially float64) BiasMetrics {
	replayed := make([]model.CalibrationSample, 0, len(samples))
	for _, s := range samples {
		if s.OutcomeMatch == model.OutcomeUnknown {
			continue
		}
		pred := model.AnswerabilityNot
		switch {
		case s.SimScore >= fully:
			pred = model.AnswerabilityFully
		case s.SimScore >= partially:
			pred = model.AnswerabilityPartially
		}
		rs := s
		rs.OutcomeMatch = classifyOutcome(pred, Observation{
			Mentioned: s.ObsMentioned,
			Cited:     s.ObsCited,
			Known:     true,
		})
		replayed = append(replayed, rs)
	}
	return ComputeBias(replayed)
}
