package score

import (
	"fmt"

	"github.com/findablehq/findable-cli/internal/analyze"
	"github.com/findablehq/findable-cli/internal/model"
)

// ScoreRetrieval maps the question simulation onto the Retrieval
// pillar. The pillar's raw score is the simulation's overall score;
// components break it down by answerability.
func ScoreRetrieval(sim *model.SimulationResult, weight float64) (model.PillarScore, []model.Issue) {
	if sim == nil || sim.TotalQuestions() == 0 {
		return notEvaluated(model.PillarRetrieval, weight, "question simulation did not run"), nil
	}

	total := sim.TotalQuestions()
	raw := clamp(sim.OverallScore)

	components := []model.PillarComponent{
		component("fully_answerable", pct(sim.QuestionsAnswered, total), 50,
			fmt.Sprintf("%d of %d questions fully answerable", sim.QuestionsAnswered, total)),
		component("partially_answerable", pct(sim.QuestionsPartial, total), 30,
			fmt.Sprintf("%d of %d questions partially answerable", sim.QuestionsPartial, total)),
		component("mean_question_score", raw, 20,
			fmt.Sprintf("mean combined score across %d questions", total)),
	}

	var issues []model.Issue
	if sim.QuestionsUnanswered > total/2 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityCritical,
			Pillar:   model.PillarRetrieval,
			Message:  fmt.Sprintf("%d of %d likely buyer questions cannot be answered from site content", sim.QuestionsUnanswered, total),
			Fix:      "add pages that directly answer the unanswered question categories",
		})
	} else if sim.QuestionsUnanswered > 0 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarRetrieval,
			Message:  fmt.Sprintf("%d questions have no supporting content", sim.QuestionsUnanswered),
			Fix:      "cover the unanswered questions with dedicated content",
		})
	}

	return model.PillarScore{
		Name:        model.PillarRetrieval,
		RawScore:    raw,
		Weight:      weight,
		Level:       model.LevelForScore(raw),
		Evaluated:   true,
		Explanation: "how well site content answers simulated buyer questions",
		Components:  components,
	}, issues
}

// ScoreCoverage blends the simulation's topical coverage with the
// topic-cluster link graph 50/50.
func ScoreCoverage(sim *model.SimulationResult, clusters analyze.TopicClusterResult, weight float64) (model.PillarScore, []model.Issue) {
	if sim == nil || sim.TotalQuestions() == 0 {
		return notEvaluated(model.PillarCoverage, weight, "question simulation did not run"), nil
	}

	simCoverage := clamp(sim.CoverageScore)
	raw := clamp(simCoverage*0.5 + clusters.Score*0.5)

	components := []model.PillarComponent{
		component("question_coverage", simCoverage, 50,
			"fraction of questions with at least one relevant chunk"),
		component("topic_clusters", clusters.Score, 50,
			fmt.Sprintf("%d pillar pages, %d cluster pages, %d orphans, %d thin",
				clusters.PillarCount, clusters.ClusterCount, clusters.OrphanCount, clusters.ThinCount)),
	}

	var issues []model.Issue
	if clusters.OrphanCount > 0 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarCoverage,
			Message:  fmt.Sprintf("%d orphan pages with no internal links pointing to them", clusters.OrphanCount),
			Fix:      "link orphan pages from a relevant pillar page",
		})
	}
	if clusters.ThinCount > 0 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarCoverage,
			Message:  fmt.Sprintf("%d thin pages below the minimum substantive length", clusters.ThinCount),
			Fix:      "expand or consolidate thin pages",
		})
	}
	if clusters.PillarCount == 0 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarCoverage,
			Message:  "no pillar pages anchor the site's topics",
			Fix:      "publish long-form pillar pages that link out to supporting content",
		})
	}

	return model.PillarScore{
		Name:        model.PillarCoverage,
		RawScore:    raw,
		Weight:      weight,
		Level:       model.LevelForScore(raw),
		Evaluated:   true,
		Explanation: "topical breadth and internal topic architecture",
		Components:  components,
	}, issues
}

// ScoreEntity maps the optional entity-recognition analysis onto its
// pillar. It participates only when the calibration config gives it
// weight.
func ScoreEntity(entity analyze.EntityResult, weight float64) (model.PillarScore, []model.Issue) {
	if weight == 0 {
		return notEvaluated(model.PillarEntity, 0, "no weight allocated"), nil
	}

	raw := clamp(entity.Score)
	var issues []model.Issue
	if !entity.HasOrganization {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarEntity,
			Message:  "company entity is not declared via Organization schema",
			Fix:      "add an Organization block naming the company",
		})
	}

	return model.PillarScore{
		Name:        model.PillarEntity,
		RawScore:    raw,
		Weight:      weight,
		Level:       model.LevelForScore(raw),
		Evaluated:   true,
		Explanation: "consistent company identity across pages",
	}, issues
}
