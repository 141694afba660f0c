package model

import (
	"fmt"
	"math"
	"time"
)

// WeightEpsilon is the tolerance when checking that pillar weights sum
// to 100 and scoring sub-weights sum to 1.0.
const WeightEpsilon = 0.01

// ConfigStatus is the lifecycle state of a calibration config.
type ConfigStatus string

const (
	ConfigStatusDraft   ConfigStatus = "draft"
	ConfigStatusActive  ConfigStatus = "active"
	ConfigStatusRetired ConfigStatus = "retired"
)

// PillarWeights allocates the 100 points of the final score across
// pillars. Entity is optional; when zero the six core pillars carry
// the full budget.
type PillarWeights struct {
	Technical float64 `json:"technical"`
	Structure float64 `json:"structure"`
	Schema    float64 `json:"schema"`
	Authority float64 `json:"authority"`
	Retrieval float64 `json:"retrieval"`
	Coverage  float64 `json:"coverage"`
	Entity    float64 `json:"entity_recognition,omitempty"`
}

// Sum returns the total allocated weight.
func (w PillarWeights) Sum() float64 {
	return w.Technical + w.Structure + w.Schema + w.Authority + w.Retrieval + w.Coverage + w.Entity
}

// For returns the weight allocated to the named pillar.
func (w PillarWeights) For(p Pillar) float64 {
	switch p {
	case PillarTechnical:
		return w.Technical
	case PillarStructure:
		return w.Structure
	case PillarSchema:
		return w.Schema
	case PillarAuthority:
		return w.Authority
	case PillarRetrieval:
		return w.Retrieval
	case PillarCoverage:
		return w.Coverage
	case PillarEntity:
		return w.Entity
	}
	return 0
}

// AnswerabilityThresholds classify a combined question score.
type AnswerabilityThresholds struct {
	Fully     float64 `json:"fully_answerable"`
	Partially float64 `json:"partially_answerable"`
}

// ScoringWeights blend the three simulation sub-scores; they must sum
// to 1.0.
type ScoringWeights struct {
	Relevance  float64 `json:"relevance"`
	Signal     float64 `json:"signal"`
	Confidence float64 `json:"confidence"`
}

// Sum returns the total of the three sub-weights.
func (w ScoringWeights) Sum() float64 {
	return w.Relevance + w.Signal + w.Confidence
}

// CalibrationConfig is an immutable weight/threshold set used by the
// scorer and simulator. Exactly one config is active at a time; A/B
// experiments select between two configs per run, never mutate one.
type CalibrationConfig struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name"`
	Status               ConfigStatus            `json:"status"`
	Weights              PillarWeights           `json:"weights"`
	Thresholds           AnswerabilityThresholds `json:"thresholds"`
	SignalMatchThreshold float64                 `json:"signal_match_threshold"`
	Scoring              ScoringWeights          `json:"scoring"`
	ValidationMetrics    map[string]float64      `json:"validation_metrics,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
}

// Validate checks the config invariants: weights sum to 100,
// fully > partially with both in [0,1], and sub-weights sum to 1.0.
func (c *CalibrationConfig) Validate() error {
	if diff := math.Abs(c.Weights.Sum() - 100); diff > WeightEpsilon {
		return fmt.Errorf("pillar weights sum to %.2f, want 100", c.Weights.Sum())
	}
	if c.Thresholds.Fully <= c.Thresholds.Partially {
		return fmt.Errorf("fully threshold %.2f must exceed partially threshold %.2f",
			c.Thresholds.Fully, c.Thresholds.Partially)
	}
	if c.Thresholds.Fully < 0 || c.Thresholds.Fully > 1 || c.Thresholds.Partially < 0 || c.Thresholds.Partially > 1 {
		return fmt.Errorf("answerability thresholds must be in [0,1]")
	}
	if diff := math.Abs(c.Scoring.Sum() - 1.0); diff > WeightEpsilon {
		return fmt.Errorf("scoring sub-weights sum to %.2f, want 1.0", c.Scoring.Sum())
	}
	return nil
}

// DefaultCalibrationConfig returns the reference weight set used when
// no active config exists in the store.
func DefaultCalibrationConfig() CalibrationConfig {
	return CalibrationConfig{
		Name:   "default-v2",
		Status: ConfigStatusActive,
		Weights: PillarWeights{
			Technical: 20,
			Structure: 20,
			Schema:    15,
			Authority: 15,
			Retrieval: 15,
			Coverage:  15,
		},
		Thresholds: AnswerabilityThresholds{
			Fully:     0.7,
			Partially: 0.3,
		},
		SignalMatchThreshold: 0.5,
		Scoring: ScoringWeights{
			Relevance:  0.5,
			Signal:     0.3,
			Confidence: 0.2,
		},
	}
}

// Arm is an experiment allocation derived from the site id hash.
type Arm string

const (
	ArmControl   Arm = "control"
	ArmTreatment Arm = "treatment"
)

// OutcomeMatch compares a simulated prediction to an observed outcome.
type OutcomeMatch string

const (
	OutcomeTruePositive  OutcomeMatch = "true_positive"
	OutcomeTrueNegative  OutcomeMatch = "true_negative"
	OutcomeFalsePositive OutcomeMatch = "false_positive"
	OutcomeFalseNegative OutcomeMatch = "false_negative"
	OutcomeUnknown       OutcomeMatch = "unknown"
)

// CalibrationSample pairs one simulated prediction with its observed
// ground truth. Samples are append-only.
type CalibrationSample struct {
	ID                 string           `json:"id"`
	SiteID             string           `json:"site_id"`
	RunID              string           `json:"run_id,omitempty"`
	QuestionID         string           `json:"question_id"`
	QuestionCategory   QuestionCategory `json:"question_category"`
	Difficulty         Difficulty       `json:"difficulty"`
	SimAnswerability   Answerability    `json:"sim_answerability"`
	SimScore           float64          `json:"sim_score"`
	SimSignalsFound    int              `json:"sim_signals_found"`
	SimSignalsTotal    int              `json:"sim_signals_total"`
	ObsMentioned       bool             `json:"obs_mentioned"`
	ObsCited           bool             `json:"obs_cited"`
	OutcomeMatch       OutcomeMatch     `json:"outcome_match"`
	PredictionAccurate bool             `json:"prediction_accurate"`
	ExperimentID       string           `json:"experiment_id,omitempty"`
	Arm                Arm              `json:"arm,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Experiment is one A/B weight experiment over calibration configs.
// TreatmentAllocation is the fraction of sites assigned the treatment
// config, in (0.05, 0.5].
type Experiment struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	ControlConfigID     string     `json:"control_config_id"`
	TreatmentConfigID   string     `json:"treatment_config_id"`
	TreatmentAllocation float64    `json:"treatment_allocation"`
	MinSamplesPerArm    int        `json:"min_samples_per_arm"`
	ControlSamples      int        `json:"control_samples"`
	TreatmentSamples    int        `json:"treatment_samples"`
	PValue              *float64   `json:"p_value,omitempty"`
	Winner              string     `json:"winner,omitempty"`
	StartedAt           time.Time  `json:"started_at"`
	EndedAt             *time.Time `json:"ended_at,omitempty"`
}

// Validate checks the experiment allocation bounds.
func (e *Experiment) Validate() error {
	if e.TreatmentAllocation <= 0.05 || e.TreatmentAllocation > 0.5 {
		return fmt.Errorf("treatment allocation %.3f outside (0.05, 0.5]", e.TreatmentAllocation)
	}
	if e.ControlConfigID == "" || e.TreatmentConfigID == "" {
		return fmt.Errorf("experiment requires control and treatment config ids")
	}
	return nil
}

// DriftStatus is the lifecycle state of a drift alert.
type DriftStatus string

const (
	DriftStatusOpen         DriftStatus = "open"
	DriftStatusAcknowledged DriftStatus = "acknowledged"
	DriftStatusResolved     DriftStatus = "resolved"
)

// DriftAlert flags a sustained divergence between predicted and
// observed answerability.
type DriftAlert struct {
	ID               string      `json:"id"`
	Metric           string      `json:"metric"`
	BaselineValue    float64     `json:"baseline_value"`
	ObservedValue    float64     `json:"observed_value"`
	Magnitude        float64     `json:"magnitude"`
	BaselineSamples  int         `json:"baseline_samples"`
	WindowSamples    int         `json:"window_samples"`
	WindowDays       int         `json:"window_days"`
	Status           DriftStatus `json:"status"`
	Action           string      `json:"action,omitempty"`
	DetectedAt       time.Time   `json:"detected_at"`
	AcknowledgedAt   *time.Time  `json:"acknowledged_at,omitempty"`
	ResolvedAt       *time.Time  `json:"resolved_at,omitempty"`
}
