package crawl

import (
	"net/url"
	"strings"
)

// defaultExcludePatterns keep the crawl budget off admin and commerce
// flows, which never contribute findable content.
var defaultExcludePatterns = []string{
	"/wp-admin/*",
	"/cart/*",
	"/checkout/*",
	"/login/*",
}

// ExcludeList filters URLs out of the crawl frontier by path pattern.
// Patterns use robots.txt syntax, the same dialect site owners already
// write for crawlers: "*" matches any character sequence, a trailing
// "$" anchors the match to the end of the path, anything else is a
// prefix. Matching is case-insensitive.
type ExcludeList struct {
	patterns []string
}

// NewExcludeList builds an ExcludeList, falling back to the defaults
// when no patterns are configured.
func NewExcludeList(patterns []string) *ExcludeList {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	folded := make([]string, len(patterns))
	for i, p := range patterns {
		folded[i] = strings.ToLower(p)
	}
	return &ExcludeList{patterns: folded}
}

// Patterns returns the effective patterns.
func (e *ExcludeList) Patterns() []string {
	return e.patterns
}

// Excluded reports whether the URL's path matches any pattern. An
// unparseable URL is excluded; it could not be fetched anyway.
func (e *ExcludeList) Excluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := strings.ToLower(u.Path)
	for _, pattern := range e.patterns {
		if robotsPathMatches(pattern, path) {
			return true
		}
	}
	return false
}
