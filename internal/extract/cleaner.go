// Package extract turns raw crawled HTML into cleaned pages: boilerplate
// removal, main-content isolation, and descriptive metadata.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// defaultRemoveSelectors are stripped from the document before any text
// extraction.
var defaultRemoveSelectors = []string{"script", "style", "noscript", "nav", "header", "footer"}

// mainContentSelectors are tried in order; the first non-empty match is
// the page's main content region.
var mainContentSelectors = []string{"main", "article", "#content", "[role=main]"}

// Cleaner removes boilerplate and isolates the main content of a page.
type Cleaner struct {
	removeSelectors []string
}

// NewCleaner creates a Cleaner. With no selectors the default chrome
// set (script, style, nav, header, footer) is removed.
func NewCleaner(removeSelectors []string) *Cleaner {
	if len(removeSelectors) == 0 {
		removeSelectors = defaultRemoveSelectors
	}
	return &Cleaner{removeSelectors: removeSelectors}
}

// CleanResult is the text view of one cleaned page.
type CleanResult struct {
	// MainContent is the text of the isolated main-content region.
	MainContent string
	// FullText is all visible text after boilerplate removal.
	FullText string
	// MainSelection is the goquery selection the main content came
	// from, kept for the markdown renderer and DOM analyzers.
	MainSelection *goquery.Selection
}

// Clean strips boilerplate from doc and isolates its main content. The
// document is mutated; callers needing the original DOM must parse a
// fresh copy.
func (c *Cleaner) Clean(doc *goquery.Document) *CleanResult {
	for _, sel := range c.removeSelectors {
		doc.Find(sel).Remove()
	}

	var main *goquery.Selection
	for _, sel := range mainContentSelectors {
		candidate := doc.Find(sel).First()
		if candidate.Length() > 0 && strings.TrimSpace(candidate.Text()) != "" {
			main = candidate
			break
		}
	}
	if main == nil {
		// Body minus chrome; the chrome selectors were already removed.
		main = doc.Find("body").First()
	}

	return &CleanResult{
		MainContent:   CollapseWhitespace(main.Text()),
		FullText:      CollapseWhitespace(doc.Find("body").Text()),
		MainSelection: main,
	}
}

// CollapseWhitespace normalizes runs of whitespace to single spaces,
// preserving paragraph breaks as single newlines.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	lastNewline := false
	for _, r := range s {
		switch {
		case r == '\n':
			if !lastNewline && b.Len() > 0 {
				b.WriteByte('\n')
				lastNewline = true
				lastSpace = true
			}
		case r == ' ' || r == '\t' || r == '\r':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
			lastNewline = false
		}
	}
	return strings.TrimSpace(b.String())
}

// WordCount counts whitespace-separated tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
