package analyze

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/findablehq/findable-cli/internal/crawl"
	"github.com/findablehq/findable-cli/internal/model"
)

// credentialMarkers suggest the author carries stated expertise.
var credentialMarkers = []string{
	"phd", "ph.d", "md", "m.d", "cfa", "cpa", "professor", "dr.",
	"years of experience", "certified", "licensed", "founder",
	"director of", "head of",
}

// authoritativeHosts are citation targets treated as high-trust
// sources.
var authoritativeHosts = []string{
	".gov", ".edu", "wikipedia.org", "nature.com", "sciencedirect.com",
	"pubmed.ncbi", "ieee.org", "acm.org", "arxiv.org", "who.int",
	"reuters.com", "apnews.com",
}

// originalDataMarkers suggest first-party research.
var originalDataMarkers = []string{
	"our survey", "our study", "we surveyed", "we analyzed", "our research",
	"our data", "we measured", "respondents", "sample size", "methodology",
}

var dateTextPattern = regexp.MustCompile(`(?i)(published|updated|last modified)[:\s]`)

// AuthorityResult reports trust signals for one page.
type AuthorityResult struct {
	Score           float64     `json:"score"`
	Level           model.Level `json:"level"`
	HasAuthor       bool        `json:"has_author"`
	HasCredentials  bool        `json:"has_credentials"`
	CitationCount   int         `json:"citation_count"`
	AuthoritativeCitations int  `json:"authoritative_citations"`
	HasOriginalData bool        `json:"has_original_data"`
	HasVisibleDate  bool        `json:"has_visible_date"`
	Issues          []string    `json:"issues,omitempty"`
}

// AnalyzeAuthority scores author attribution, credentials, outbound
// citations (distinguishing authoritative sources), original data, and
// visible publication dates.
func AnalyzeAuthority(page Page) AuthorityResult {
	r := AuthorityResult{}

	if page.Doc == nil {
		r.Level = model.LevelLimited
		r.Issues = append(r.Issues, "page HTML could not be parsed")
		return r
	}

	md := page.Extracted.Metadata
	lowerText := strings.ToLower(page.Extracted.FullText)

	r.HasAuthor = md.Author != "" ||
		page.Doc.Find(`[rel=author], .author, [itemprop=author]`).Length() > 0 ||
		strings.Contains(lowerText, "written by") || strings.Contains(lowerText, "by the ")

	if r.HasAuthor {
		for _, marker := range credentialMarkers {
			if strings.Contains(lowerText, marker) {
				r.HasCredentials = true
				break
			}
		}
	}

	domain, _ := crawl.Domain(page.Extracted.URL)
	page.Doc.Find("a[href^='http']").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if crawl.IsInternal(href, domain) {
			return
		}
		r.CitationCount++
		lowerHref := strings.ToLower(href)
		for _, host := range authoritativeHosts {
			if strings.Contains(lowerHref, host) {
				r.AuthoritativeCitations++
				break
			}
		}
	})

	for _, marker := range originalDataMarkers {
		if strings.Contains(lowerText, marker) {
			r.HasOriginalData = true
			break
		}
	}

	r.HasVisibleDate = md.PublishedDate != "" || md.ModifiedDate != "" ||
		page.Doc.Find("time[datetime]").Length() > 0 ||
		dateTextPattern.MatchString(page.Extracted.FullText)

	score := 0.0
	if r.HasAuthor {
		score += 25
	} else {
		r.Issues = append(r.Issues, "no author attribution")
	}
	if r.HasCredentials {
		score += 15
	}
	switch {
	case r.AuthoritativeCitations >= 2:
		score += 25
	case r.CitationCount >= 3:
		score += 15
	case r.CitationCount > 0:
		score += 10
	default:
		r.Issues = append(r.Issues, "no outbound citations")
	}
	if r.HasOriginalData {
		score += 15
	}
	if r.HasVisibleDate {
		score += 20
	} else {
		r.Issues = append(r.Issues, "no visible publication or modification date")
	}

	r.Score = clamp(score)
	r.Level = model.LevelForScore(r.Score)
	return r
}
