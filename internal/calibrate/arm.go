// Package calibrate maintains the feedback loop between simulated
// predictions and observed answer-engine behavior: sample logging,
// bias metrics, drift detection, A/B arms, and offline weight
// proposals.
package calibrate

import (
	"crypto/sha256"

	"github.com/findablehq/findable-cli/internal/model"
)

// AssignArm deterministically buckets a site into an experiment arm.
// The full SHA-256 digest of the site id, taken mod 10000, gives the
// bucket; sites below the treatment allocation get the treatment
// config. Pure function, stable across processes.
func AssignArm(siteID string, treatmentAllocation float64) model.Arm {
	sum := sha256.Sum256([]byte(siteID))
	bucket := uint64(0)
	for _, b := range sum {
		bucket = (bucket*256 + uint64(b)) % 10000
	}
	if float64(bucket)/10000 < treatmentAllocation {
		return model.ArmTreatment
	}
	return model.ArmControl
}

// ConfigForArm picks the calibration config an arm scores with.
func ConfigForArm(arm model.Arm, exp *model.Experiment, control, treatment model.CalibrationConfig) model.CalibrationConfig {
	if exp == nil || arm == model.ArmControl {
		return control
	}
	return treatment
}
