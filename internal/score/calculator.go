package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/findablehq/findable-cli/internal/model"
)

// maxFixes caps the fix list on a calculated score.
const maxFixes = 10

// Calculator composes pillar scores into the final Findable Score
// under one calibration config.
type Calculator struct {
	cfg model.CalibrationConfig
}

// NewCalculator validates the config and returns a calculator bound
// to it.
func NewCalculator(cfg model.CalibrationConfig) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "score: invalid calibration config")
	}
	return &Calculator{cfg: cfg}, nil
}

// Config returns the calibration config this calculator scores with.
func (c *Calculator) Config() model.CalibrationConfig {
	return c.cfg
}

// Calculate sums points across evaluated pillars. Each evaluated
// pillar contributes raw_score/100 * weight; unevaluated pillars keep
// their weight out of max_evaluated_points so a partial audit is still
// comparable via evaluated_score_pct. Pillars are emitted in declared
// scoring order regardless of input order; critical issues and their
// fixes ride along on the final score.
func (c *Calculator) Calculate(pillars []model.PillarScore, issues []model.Issue) model.FindableScore {
	ordered := orderPillars(pillars)

	var total, maxEvaluated float64
	evaluated, skipped := 0, 0
	for i := range ordered {
		p := &ordered[i]
		p.Weight = c.cfg.Weights.For(p.Name)
		p.MaxPoints = p.Weight
		if !p.Evaluated {
			p.PointsEarned = 0
			skipped++
			continue
		}
		p.PointsEarned = p.RawScore / 100 * p.Weight
		total += p.PointsEarned
		maxEvaluated += p.Weight
		evaluated++
	}

	s := model.FindableScore{
		TotalScore:          total,
		Grade:               model.GradeForScore(total),
		Pillars:             ordered,
		PillarsEvaluated:    evaluated,
		PillarsNotEvaluated: skipped,
		IsPartial:           skipped > 0,
		MaxEvaluatedPoints:  maxEvaluated,
		EvaluatedScorePct:   100,
	}
	if maxEvaluated > 0 {
		s.EvaluatedScorePct = total / maxEvaluated * 100
	} else {
		s.EvaluatedScorePct = 0
	}

	for _, is := range issues {
		if is.Severity == model.SeverityCritical {
			s.CriticalIssues = append(s.CriticalIssues, is)
		}
	}
	s.Fixes = TopFixes(issues, maxFixes)

	zap.L().Debug("score calculated",
		zap.Float64("total", s.TotalScore),
		zap.String("grade", string(s.Grade)),
		zap.Int("pillars_evaluated", evaluated),
		zap.Bool("partial", s.IsPartial),
	)
	return s
}

// orderPillars returns the pillars in declared scoring order, entity
// last when present. Unknown pillars are dropped.
func orderPillars(pillars []model.PillarScore) []model.PillarScore {
	rank := make(map[model.Pillar]int, 7)
	for i, p := range model.AllPillars() {
		rank[p] = i
	}
	rank[model.PillarEntity] = len(rank)

	out := make([]model.PillarScore, 0, len(pillars))
	for _, p := range pillars {
		if _, ok := rank[p.Name]; ok {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].Name] < rank[out[j].Name]
	})
	return out
}

// ShowTheMath renders the full scoring trace: every pillar and
// component with its raw score, weight, and weighted contribution, in
// fixed order. The output is deterministic for identical inputs.
func ShowTheMath(s *model.FindableScore) string {
	var b strings.Builder

	b.WriteString("SCORE CALCULATION\n")
	b.WriteString(strings.Repeat("=", 64) + "\n")
	for _, p := range s.Pillars {
		if !p.Evaluated {
			fmt.Fprintf(&b, "%-22s not evaluated (weight %.0f excluded)\n", p.Name, p.Weight)
			continue
		}
		fmt.Fprintf(&b, "%-22s raw %6.2f x weight %5.2f / 100 = %6.2f pts\n",
			p.Name, p.RawScore, p.Weight, p.PointsEarned)
		for _, c := range p.Components {
			fmt.Fprintf(&b, "  %-20s raw %6.2f x %5.2f%% = %6.2f\n",
				c.Name, c.RawScore, c.Weight, c.WeightedScore)
		}
	}
	b.WriteString(strings.Repeat("-", 64) + "\n")
	fmt.Fprintf(&b, "TOTAL %.2f / %.2f  grade %s\n", s.TotalScore, s.MaxEvaluatedPoints, s.Grade)
	if s.IsPartial {
		fmt.Fprintf(&b, "partial audit: %d of %d pillars evaluated, %.2f%% of evaluated points\n",
			s.PillarsEvaluated, s.PillarsEvaluated+s.PillarsNotEvaluated, s.EvaluatedScorePct)
	}
	return b.String()
}

// NotEvaluated builds the placeholder for a pillar skipped this run.
// It still carries its weight so the partial-evaluation math can
// report how many points were out of reach.
func NotEvaluated(name model.Pillar, weight float64, why string) model.PillarScore {
	return notEvaluated(name, weight, why)
}

// TopFixes collects fix suggestions from critical issues first, then
// warnings, capped at limit.
func TopFixes(issues []model.Issue, limit int) []string {
	var fixes []string
	for _, sev := range []model.Severity{model.SeverityCritical, model.SeverityWarning} {
		for _, is := range issues {
			if is.Severity == sev && is.Fix != "" {
				fixes = append(fixes, is.Fix)
				if len(fixes) == limit {
					return fixes
				}
			}
		}
	}
	return fixes
}
