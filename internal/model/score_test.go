package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		score float64
		want  Level
	}{
		{"full at upper bound", 100, LevelFull},
		{"full at threshold", 80, LevelFull},
		{"partial just below full", 79.99, LevelPartial},
		{"partial at threshold", 50, LevelPartial},
		{"limited just below partial", 49.99, LevelLimited},
		{"limited at zero", 0, LevelLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, LevelForScore(tt.score))
		})
	}
}

func TestGradeForScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		score float64
		want  Grade
	}{
		{"A at 90", 90, GradeA},
		{"A at 100", 100, GradeA},
		{"B at 80", 80, GradeB},
		{"B just below A", 89.9, GradeB},
		{"C at 70", 70, GradeC},
		{"D at 60", 60, GradeD},
		{"F below 60", 59.9, GradeF},
		{"F at zero", 0, GradeF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GradeForScore(tt.score))
		})
	}
}

func TestAllPillars(t *testing.T) {
	t.Parallel()

	pillars := AllPillars()
	assert.Len(t, pillars, 6)
	assert.Equal(t, PillarTechnical, pillars[0])
	assert.Equal(t, PillarCoverage, pillars[5])
	assert.NotContains(t, pillars, PillarEntity)
}

func TestFindableScorePillarByName(t *testing.T) {
	t.Parallel()

	score := FindableScore{
		Pillars: []PillarScore{
			{Name: PillarTechnical, RawScore: 85},
			{Name: PillarStructure, RawScore: 60},
		},
	}

	p, ok := score.PillarByName(PillarStructure)
	assert.True(t, ok)
	assert.Equal(t, 60.0, p.RawScore)

	_, ok = score.PillarByName(PillarCoverage)
	assert.False(t, ok)
}
