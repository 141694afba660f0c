package score

import (
	"fmt"

	"github.com/findablehq/findable-cli/internal/analyze"
	"github.com/findablehq/findable-cli/internal/model"
)

// ScoreAuthority averages per-page authority signals into the
// Authority pillar: author attribution, credentials, citations,
// original data, and visible dates.
func ScoreAuthority(pages []analyze.PageAnalysis, weight float64) (model.PillarScore, []model.Issue) {
	if len(pages) == 0 {
		return notEvaluated(model.PillarAuthority, weight, "no pages analyzed"), nil
	}

	var sum float64
	withAuthor, withDate, withData, citations, authoritative := 0, 0, 0, 0, 0
	for _, p := range pages {
		sum += p.Authority.Score
		if p.Authority.HasAuthor {
			withAuthor++
		}
		if p.Authority.HasVisibleDate {
			withDate++
		}
		if p.Authority.HasOriginalData {
			withData++
		}
		citations += p.Authority.CitationCount
		authoritative += p.Authority.AuthoritativeCitations
	}
	n := len(pages)
	raw := clamp(sum / float64(n))

	components := []model.PillarComponent{
		component("authorship", pct(withAuthor, n), 35,
			fmt.Sprintf("%d of %d pages name an author", withAuthor, n)),
		component("citations", citationScore(citations, authoritative, n), 30,
			fmt.Sprintf("%d outbound citations, %d to authoritative sources", citations, authoritative)),
		component("freshness", pct(withDate, n), 20,
			fmt.Sprintf("%d of %d pages show a publication date", withDate, n)),
		component("original_data", pct(withData, n), 15,
			fmt.Sprintf("%d of %d pages present original data", withData, n)),
	}

	var issues []model.Issue
	if withAuthor == 0 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarAuthority,
			Message:  "no page attributes its content to an author",
			Fix:      "add author bylines with credentials to content pages",
		})
	}
	if citations == 0 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarAuthority,
			Message:  "no outbound citations found",
			Fix:      "cite authoritative external sources to back up claims",
		})
	}
	if withDate == 0 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			Pillar:   model.PillarAuthority,
			Message:  "no visible publication dates",
			Fix:      "show a published or updated date on content pages",
		})
	}

	return model.PillarScore{
		Name:        model.PillarAuthority,
		RawScore:    raw,
		Weight:      weight,
		Level:       model.LevelForScore(raw),
		Evaluated:   true,
		Explanation: "trust signals answer engines weigh when choosing sources",
		Components:  components,
	}, issues
}

func pct(have, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(have) / float64(total) * 100
}

// citationScore rewards citation density per page, with extra credit
// for authoritative hosts.
func citationScore(citations, authoritative, pages int) float64 {
	if pages == 0 {
		return 0
	}
	perPage := float64(citations) / float64(pages)
	s := clamp(perPage * 30)
	if authoritative > 0 {
		s = clamp(s + 20)
	}
	return s
}
