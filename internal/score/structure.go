package score

import (
	"fmt"

	"github.com/findablehq/findable-cli/internal/analyze"
	"github.com/findablehq/findable-cli/internal/model"
)

// ScoreStructure averages the per-page structure analyses into the
// Structure pillar. Components mirror the page-level sub-signals so
// the report can show which habit is dragging the site down.
func ScoreStructure(pages []analyze.PageAnalysis, weight float64) (model.PillarScore, []model.Issue) {
	if len(pages) == 0 {
		return notEvaluated(model.PillarStructure, weight, "no pages analyzed"), nil
	}

	var heading, answerFirst, answerBlock, readability, faq, links, formats float64
	faqPages := 0
	for _, p := range pages {
		heading += p.Heading.Score
		answerFirst += p.Structure.AnswerFirst.Score
		answerBlock += p.Structure.AnswerBlock.Score
		readability += p.Structure.Readability.Score
		faq += p.Structure.FAQ.Score
		links += p.Links.Score
		formats += p.Structure.Formats.Score
		if p.Structure.FAQ.HasFAQSection {
			faqPages++
		}
	}
	n := float64(len(pages))
	heading /= n
	answerFirst /= n
	answerBlock /= n
	readability /= n
	faq /= n
	links /= n
	formats /= n

	components := []model.PillarComponent{
		component("headings", heading, 20, "heading hierarchy and h1 usage"),
		component("answer_first", answerFirst, 15, "opening paragraphs lead with the answer"),
		component("ai_answer_block", answerBlock, 15, "40-80 word definitional opener after the h1"),
		component("readability", readability, 15, "sentence and paragraph ergonomics"),
		component("faq", faq, 15, fmt.Sprintf("FAQ structure on %d of %d pages", faqPages, len(pages))),
		component("links", links, 10, "internal linking and anchor quality"),
		component("formats", formats, 10, "lists, tables, and other answer-friendly formats"),
	}

	raw := 0.0
	for _, c := range components {
		raw += c.WeightedScore
	}
	raw = clamp(raw)

	var issues []model.Issue
	if answerBlock < 50 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarStructure,
			Message:  "most pages lack a concise answer block after the main heading",
			Fix:      "open each page with a 40-80 word paragraph that defines the topic",
		})
	}
	if faqPages == 0 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarStructure,
			Message:  "no FAQ sections found on any crawled page",
			Fix:      "add FAQ sections with question-form headings to key pages",
		})
	}
	if heading < 50 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarStructure,
			Message:  "heading hierarchy problems on most pages",
			Fix:      "use exactly one h1 per page and do not skip heading levels",
		})
	}

	return model.PillarScore{
		Name:        model.PillarStructure,
		RawScore:    raw,
		Weight:      weight,
		Level:       model.LevelForScore(raw),
		Evaluated:   true,
		Explanation: "content organized the way answer engines quote it",
		Components:  components,
	}, issues
}

func notEvaluated(name model.Pillar, weight float64, why string) model.PillarScore {
	return model.PillarScore{
		Name:        name,
		Weight:      weight,
		Level:       model.LevelLimited,
		Evaluated:   false,
		Explanation: why,
	}
}
