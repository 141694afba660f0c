package calibrate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/findablehq/findable-cli/internal/model"
)

func TestAssignArm_Deterministic(t *testing.T) {
	first := AssignArm("site-abc", 0.2)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, AssignArm("site-abc", 0.2))
	}
}

func TestAssignArm_AllocationBounds(t *testing.T) {
	assert.Equal(t, model.ArmControl, AssignArm("site-abc", 0))

	// Allocation of 1 puts every site in treatment.
	for i := 0; i < 20; i++ {
		assert.Equal(t, model.ArmTreatment, AssignArm(fmt.Sprintf("site-%d", i), 1))
	}
}

func TestAssignArm_RoughlyProportional(t *testing.T) {
	treatment := 0
	const n = 2000
	for i := 0; i < n; i++ {
		if AssignArm(fmt.Sprintf("site-%d", i), 0.25) == model.ArmTreatment {
			treatment++
		}
	}
	frac := float64(treatment) / n
	assert.InDelta(t, 0.25, frac, 0.05)
}

func TestConfigForArm(t *testing.T) {
	control := model.DefaultCalibrationConfig()
	control.Name = "control"
	treatment := model.DefaultCalibrationConfig()
	treatment.Name = "treatment"
	exp := &model.Experiment{ID: "exp-1", ControlConfigID: "c", TreatmentConfigID: "t", TreatmentAllocation: 0.2}

	assert.Equal(t, "control", ConfigForArm(model.ArmControl, exp, control, treatment).Name)
	assert.Equal(t, "treatment", ConfigForArm(model.ArmTreatment, exp, control, treatment).Name)
	// Without an experiment everyone scores with the control config.
	assert.Equal(t, "control", ConfigForArm(model.ArmTreatment, nil, control, treatment).Name)
}
