package analyze

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/crawl"
	"github.com/findablehq/findable-cli/internal/model"
)

// genericAnchors are anchor texts that tell an AI engine nothing about
// the target.
var genericAnchors = map[string]bool{
	"click here": true,
	"read more":  true,
	"learn more": true,
	"here":       true,
	"more":       true,
	"link":       true,
	"this":       true,
	"see more":   true,
	"view more":  true,
	"continue":   true,
}

// LinkResult reports link quality for one page.
type LinkResult struct {
	Score           float64     `json:"score"`
	Level           model.Level `json:"level"`
	Internal        int         `json:"internal"`
	External        int         `json:"external"`
	NavigationLinks int         `json:"navigation_links"`
	ContentLinks    int         `json:"content_links"`
	GenericAnchors  int         `json:"generic_anchors"`
	EmptyAnchors    int         `json:"empty_anchors"`
	Issues          []string    `json:"issues,omitempty"`
}

// AnalyzeLinks counts internal and external links and classifies them
// into navigation chrome vs in-content references. Content-area
// internal links inside the configured optimal range score highest;
// generic and empty anchors are penalized.
func AnalyzeLinks(page Page, cfg config.AnalyzeConfig) LinkResult {
	r := LinkResult{Score: 100}

	if page.Doc == nil {
		r.Score = 0
		r.Level = model.LevelLimited
		r.Issues = append(r.Issues, "page HTML could not be parsed")
		return r
	}

	domain, _ := crawl.Domain(page.Extracted.URL)

	// Membership is precomputed by DOM node: anchors under nav,
	// header, or footer are navigation; everything else is content.
	navSet := make(map[*html.Node]bool)
	page.Doc.Find("nav a[href], header a[href], footer a[href]").Each(func(_ int, s *goquery.Selection) {
		navSet[s.Get(0)] = true
		r.NavigationLinks++
	})

	page.Doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}

		external := (strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")) &&
			!crawl.IsInternal(href, domain)
		if external {
			r.External++
		} else {
			r.Internal++
		}

		if !navSet[s.Get(0)] {
			r.ContentLinks++
		}

		anchor := strings.ToLower(strings.TrimSpace(s.Text()))
		switch {
		case anchor == "":
			// Image links with alt text still describe the target.
			if alt, ok := s.Find("img").First().Attr("alt"); !ok || strings.TrimSpace(alt) == "" {
				r.EmptyAnchors++
			}
		case genericAnchors[anchor]:
			r.GenericAnchors++
		}
	})

	minInternal := cfg.OptimalInternalMin
	maxInternal := cfg.OptimalInternalMax
	if minInternal <= 0 {
		minInternal = 3
	}
	if maxInternal <= 0 {
		maxInternal = 30
	}

	switch {
	case r.Internal == 0:
		r.Score -= 40
		r.Issues = append(r.Issues, "page has no internal links")
	case r.Internal < minInternal:
		r.Score -= 15
		r.Issues = append(r.Issues, "fewer internal links than the optimal range")
	case r.Internal > maxInternal:
		r.Score -= 10
		r.Issues = append(r.Issues, "more internal links than the optimal range")
	}

	if r.GenericAnchors > 0 {
		r.Score -= float64(5 * r.GenericAnchors)
		r.Issues = append(r.Issues, "generic anchor text (\"click here\", \"read more\") carries no meaning")
	}
	if r.EmptyAnchors > 0 {
		r.Score -= float64(5 * r.EmptyAnchors)
		r.Issues = append(r.Issues, "links with empty anchor text")
	}

	r.Score = clamp(r.Score)
	r.Level = model.LevelForScore(r.Score)
	return r
}
