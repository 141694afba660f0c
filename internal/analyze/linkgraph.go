package analyze

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/findablehq/findable-cli/internal/crawl"
)

// BuildLinkGraph extracts the internal link graph from parsed pages:
// source URL to normalized internal target URLs. Targets outside the
// domain or pointing back at the source are dropped.
func BuildLinkGraph(pages []Page, domain string) map[string][]string {
	graph := make(map[string][]string, len(pages))
	for _, p := range pages {
		if p.Doc == nil || p.Extracted == nil {
			continue
		}
		base, err := url.Parse(p.Extracted.URL)
		if err != nil {
			continue
		}
		seen := make(map[string]bool)
		var targets []string
		p.Doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok {
				return
			}
			normalized, ok := crawl.NormalizeRef(href, base)
			if !ok || normalized == p.Extracted.URL || seen[normalized] {
				return
			}
			if !crawl.IsInternal(normalized, domain) {
				return
			}
			seen[normalized] = true
			targets = append(targets, normalized)
		})
		graph[p.Extracted.URL] = targets
	}
	return graph
}
