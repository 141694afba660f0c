// Package score turns analyzer outputs into pillar scores and composes
// the final Findable Score.
package score

import (
	"fmt"
	"strings"

	"github.com/findablehq/findable-cli/internal/analyze"
	"github.com/findablehq/findable-cli/internal/model"
)

// Technical pillar sub-weights; they sum to 100.
const (
	weightRobots = 35
	weightTTFB   = 30
	weightLlms   = 15
	weightJS     = 10
	weightHTTPS  = 10
)

// TechnicalInputs are the site-level analyzer outputs the technical
// pillar scores over.
type TechnicalInputs struct {
	RobotsAI analyze.RobotsAIResult
	TTFB     analyze.TTFBResult
	LlmsTxt  analyze.LlmsTxtResult
	// JS is the worst page-level JS detection; one empty shell caps
	// the pillar.
	JS    analyze.JSDetectionResult
	HTTPS bool
	// StartBlocked is set when the start URL itself was blocked by
	// anti-bot protection.
	StartBlocked bool
	BlockType    string
}

// ScoreTechnical combines robots access, TTFB, llms.txt, JS
// accessibility, and HTTPS into the Technical pillar. An empty JS
// shell forces level "limited" regardless of the other components.
func ScoreTechnical(in TechnicalInputs, weight float64) (model.PillarScore, []model.Issue) {
	httpsScore := 0.0
	if in.HTTPS {
		httpsScore = 100
	}

	components := []model.PillarComponent{
		component("robots_ai_access", in.RobotsAI.Score, weightRobots, in.RobotsAI.Summary),
		component("ttfb", in.TTFB.Score, weightTTFB,
			fmt.Sprintf("time to first byte %dms (%s)", in.TTFB.Milliseconds, in.TTFB.Rating)),
		component("llms_txt", in.LlmsTxt.Score, weightLlms, llmsExplanation(in.LlmsTxt)),
		component("js_accessibility", in.JS.Score, weightJS, jsExplanation(in.JS)),
		component("https", httpsScore, weightHTTPS, httpsExplanation(in.HTTPS)),
	}

	raw := 0.0
	for _, c := range components {
		raw += c.WeightedScore
	}
	raw = clamp(raw)

	level := model.LevelForScore(raw)
	if in.JS.IsEmptyShell {
		level = model.LevelLimited
	}

	var issues []model.Issue
	if in.RobotsAI.Severity == model.SeverityCritical {
		issues = append(issues, model.Issue{
			Severity: model.SeverityCritical,
			Pillar:   model.PillarTechnical,
			Message:  "robots.txt blocks search crawlers (" + strings.Join(in.RobotsAI.CriticalBlocked, ", ") + ")",
			Fix:      "allow Googlebot and Bingbot in robots.txt",
		})
		if raw > 60 {
			raw = 60
		}
		if level == model.LevelFull {
			level = model.LevelPartial
		}
	} else if in.RobotsAI.Severity == model.SeverityWarning {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarTechnical,
			Message:  "robots.txt blocks AI crawlers (" + strings.Join(in.RobotsAI.WarningBlocked, ", ") + ")",
			Fix:      "allow GPTBot, ClaudeBot, and PerplexityBot for direct AI crawling",
		})
	}
	if in.JS.IsEmptyShell {
		issues = append(issues, model.Issue{
			Severity: model.SeverityCritical,
			Pillar:   model.PillarTechnical,
			Message:  "page renders as an empty shell without JavaScript",
			Fix:      "enable server-side rendering so crawlers receive real content",
		})
	}
	if in.StartBlocked {
		issues = append(issues, model.Issue{
			Severity: model.SeverityCritical,
			Pillar:   model.PillarTechnical,
			Message:  "the start URL is behind anti-bot protection (" + in.BlockType + ")",
			Fix:      "exempt well-behaved crawlers from the bot challenge",
		})
	}
	if !in.HTTPS {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarTechnical,
			Message:  "site is not served over HTTPS",
			Fix:      "redirect all traffic to HTTPS",
		})
	}

	return model.PillarScore{
		Name:        model.PillarTechnical,
		RawScore:    raw,
		Weight:      weight,
		Level:       level,
		Evaluated:   true,
		Explanation: "crawler access, server speed, and render-free content",
		Components:  components,
	}, issues
}

func component(name string, raw, weight float64, explanation string) model.PillarComponent {
	return model.PillarComponent{
		Name:          name,
		RawScore:      raw,
		Weight:        weight,
		WeightedScore: raw / 100 * weight,
		Level:         model.LevelForScore(raw),
		Explanation:   explanation,
	}
}

func llmsExplanation(r analyze.LlmsTxtResult) string {
	if !r.Found {
		return "no /llms.txt published"
	}
	return fmt.Sprintf("/llms.txt with %d curated links", r.LinkCount)
}

func jsExplanation(r analyze.JSDetectionResult) string {
	switch {
	case r.IsEmptyShell:
		return "empty shell; no content without JavaScript"
	case r.FrameworkDetected != "":
		return r.FrameworkDetected + " detected with server-rendered content"
	default:
		return "content renders without JavaScript"
	}
}

func httpsExplanation(https bool) string {
	if https {
		return "served over HTTPS"
	}
	return "not served over HTTPS"
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
