package model

// Pillar names the scoring axes that compose the Findable Score.
type Pillar string

const (
	PillarTechnical Pillar = "technical"
	PillarStructure Pillar = "structure"
	PillarSchema    Pillar = "schema"
	PillarAuthority Pillar = "authority"
	PillarRetrieval Pillar = "retrieval"
	PillarCoverage  Pillar = "coverage"

	// PillarEntity is optional; it participates only when the active
	// calibration config allocates it weight.
	PillarEntity Pillar = "entity_recognition"
)

// AllPillars returns the six core pillars in declared scoring order.
func AllPillars() []Pillar {
	return []Pillar{
		PillarTechnical,
		PillarStructure,
		PillarSchema,
		PillarAuthority,
		PillarRetrieval,
		PillarCoverage,
	}
}

// Level is the progress classification of a pillar or component score:
// full >= 80, partial >= 50, else limited.
type Level string

const (
	LevelFull    Level = "full"
	LevelPartial Level = "partial"
	LevelLimited Level = "limited"
)

// LevelForScore maps a 0..100 score to its progress level.
func LevelForScore(score float64) Level {
	switch {
	case score >= 80:
		return LevelFull
	case score >= 50:
		return LevelPartial
	default:
		return LevelLimited
	}
}

// Severity tags an analyzer finding by how urgently it needs fixing.
type Severity string

const (
	SeverityGood     Severity = "good"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// PillarComponent is one weighted sub-signal inside a pillar.
type PillarComponent struct {
	Name          string         `json:"name"`
	RawScore      float64        `json:"raw_score"`
	Weight        float64        `json:"weight"`
	WeightedScore float64        `json:"weighted_score"`
	Level         Level          `json:"level"`
	Explanation   string         `json:"explanation,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// PillarScore is one pillar's contribution to the final score.
type PillarScore struct {
	Name         Pillar            `json:"name"`
	RawScore     float64           `json:"raw_score"`
	Weight       float64           `json:"weight"`
	PointsEarned float64           `json:"points_earned"`
	MaxPoints    float64           `json:"max_points"`
	Level        Level             `json:"level"`
	Evaluated    bool              `json:"evaluated"`
	Explanation  string            `json:"explanation,omitempty"`
	Components   []PillarComponent `json:"components,omitempty"`
}

// Grade is the letter band for a total score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeForScore maps a 0..100 score to its letter grade.
func GradeForScore(score float64) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// Issue is a user-facing finding surfaced by an analyzer or scorer.
type Issue struct {
	Severity Severity `json:"severity"`
	Pillar   Pillar   `json:"pillar,omitempty"`
	Message  string   `json:"message"`
	Fix      string   `json:"fix,omitempty"`
}

// FindableScore is the final weighted 0..100 audit result.
type FindableScore struct {
	TotalScore          float64       `json:"total_score"`
	Grade               Grade         `json:"grade"`
	Pillars             []PillarScore `json:"pillars"`
	PillarsEvaluated    int           `json:"pillars_evaluated"`
	PillarsNotEvaluated int           `json:"pillars_not_evaluated"`
	IsPartial           bool          `json:"is_partial"`
	MaxEvaluatedPoints  float64       `json:"max_evaluated_points"`
	EvaluatedScorePct   float64       `json:"evaluated_score_pct"`
	CriticalIssues      []Issue       `json:"critical_issues,omitempty"`
	Fixes               []string      `json:"fixes,omitempty"`
}

// PillarByName returns the named pillar score, if present.
func (s *FindableScore) PillarByName(name Pillar) (PillarScore, bool) {
	for _, p := range s.Pillars {
		if p.Name == name {
			return p, true
		}
	}
	return PillarScore{}, false
}
