package analyze

import (
	"strings"

	"github.com/findablehq/findable-cli/internal/model"
)

// EntityResult is the optional entity-recognition analysis: how
// consistently the site presents its own name and identity. It only
// feeds the score when the active config allocates the entity pillar
// weight.
type EntityResult struct {
	Score           float64     `json:"score"`
	Level           model.Level `json:"level"`
	CompanyName     string      `json:"company_name,omitempty"`
	NameMentions    int         `json:"name_mentions"`
	PagesWithName   int         `json:"pages_with_name"`
	HasOrganization bool        `json:"has_organization_schema"`
	ConsistentOG    bool        `json:"consistent_og_site_name"`
	Issues          []string    `json:"issues,omitempty"`
}

// AnalyzeEntity measures entity consistency across pages: name
// mentions in content, Organization schema, and og:site_name
// agreement.
func AnalyzeEntity(pages []Page, companyName string) EntityResult {
	r := EntityResult{CompanyName: companyName}

	if companyName == "" || len(pages) == 0 {
		r.Level = model.LevelLimited
		r.Issues = append(r.Issues, "no company name to check entity consistency against")
		return r
	}

	lower := strings.ToLower(companyName)
	ogMatches := 0
	ogPresent := 0

	for _, p := range pages {
		text := strings.ToLower(p.Extracted.FullText)
		mentions := strings.Count(text, lower)
		r.NameMentions += mentions
		if mentions > 0 {
			r.PagesWithName++
		}

		for _, t := range p.Extracted.Metadata.SchemaTypes {
			if t == "Organization" {
				r.HasOrganization = true
			}
		}
		if og := p.Extracted.Metadata.OGSiteName; og != "" {
			ogPresent++
			if strings.EqualFold(og, companyName) {
				ogMatches++
			}
		}
	}

	r.ConsistentOG = ogPresent > 0 && ogMatches == ogPresent

	coverage := float64(r.PagesWithName) / float64(len(pages))
	score := 60 * coverage
	if r.HasOrganization {
		score += 25
	} else {
		r.Issues = append(r.Issues, "no Organization schema declaring the entity")
	}
	if r.ConsistentOG {
		score += 15
	} else if ogPresent > 0 {
		r.Issues = append(r.Issues, "og:site_name disagrees with the company name on some pages")
	}
	if coverage < 0.5 {
		r.Issues = append(r.Issues, "company name appears on fewer than half of pages")
	}

	r.Score = clamp(score)
	r.Level = model.LevelForScore(r.Score)
	return r
}
