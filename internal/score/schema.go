package score

import (
	"fmt"
	"sort"

	"github.com/findablehq/findable-cli/internal/analyze"
	"github.com/findablehq/findable-cli/internal/model"
)

// ScoreSchema averages per-page structured-data scores into the Schema
// pillar and surfaces sitewide gaps such as a missing Organization
// block.
func ScoreSchema(pages []analyze.PageAnalysis, weight float64) (model.PillarScore, []model.Issue) {
	if len(pages) == 0 {
		return notEvaluated(model.PillarSchema, weight, "no pages analyzed"), nil
	}

	var sum float64
	typesSeen := make(map[string]bool)
	pagesWithSchema := 0
	parseErrors := 0
	faqPages := 0
	for _, p := range pages {
		sum += p.Schema.Score
		parseErrors += p.Schema.ParseErrors
		if p.Schema.BlockCount > 0 {
			pagesWithSchema++
		}
		if p.Schema.HasFAQPage {
			faqPages++
		}
		for _, t := range p.Schema.Types {
			typesSeen[t] = true
		}
	}
	raw := clamp(sum / float64(len(pages)))

	types := make([]string, 0, len(typesSeen))
	for t := range typesSeen {
		types = append(types, t)
	}
	sort.Strings(types)

	coveragePct := float64(pagesWithSchema) / float64(len(pages)) * 100
	components := []model.PillarComponent{
		component("page_coverage", coveragePct, 40,
			fmt.Sprintf("%d of %d pages carry structured data", pagesWithSchema, len(pages))),
		component("type_breadth", clamp(float64(len(typesSeen))*20), 30,
			fmt.Sprintf("%d distinct schema.org types sitewide", len(typesSeen))),
		component("validity", validityScore(parseErrors, len(pages)), 30,
			fmt.Sprintf("%d malformed JSON-LD blocks", parseErrors)),
	}

	var issues []model.Issue
	if !typesSeen["Organization"] {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarSchema,
			Message:  "no Organization schema found on any page",
			Fix:      "add an Organization JSON-LD block to the home page",
		})
	}
	if faqPages == 0 && len(typesSeen) > 0 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarSchema,
			Message:  "no FAQPage schema found",
			Fix:      "mark up FAQ sections with FAQPage structured data",
		})
	}
	if parseErrors > 0 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarSchema,
			Message:  fmt.Sprintf("%d JSON-LD blocks failed to parse", parseErrors),
			Fix:      "validate JSON-LD blocks; malformed blocks are ignored by answer engines",
		})
	}

	return model.PillarScore{
		Name:        model.PillarSchema,
		RawScore:    raw,
		Weight:      weight,
		Level:       model.LevelForScore(raw),
		Evaluated:   true,
		Explanation: "structured data answer engines can read without guessing",
		Components:  components,
	}, issues
}

func validityScore(parseErrors, pages int) float64 {
	if parseErrors == 0 {
		return 100
	}
	return clamp(100 - float64(parseErrors)/float64(pages)*100)
}
