package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/model"
)

func TestAnalyzeLinks_HealthyPage(t *testing.T) {
	html := `<html><body>
		<nav><a href="/">Home</a><a href="/docs">Docs</a></nav>
		<article>
			<a href="/pricing">Pricing plans</a>
			<a href="/docs/install">Installation guide</a>
			<a href="https://example.org/spec">Protocol spec</a>
		</article>
	</body></html>`
	page := testPage(t, html, &model.ExtractedPage{URL: "https://acme.com/p"})

	r := AnalyzeLinks(page, config.AnalyzeConfig{})
	assert.Equal(t, 4, r.Internal)
	assert.Equal(t, 1, r.External)
	assert.Equal(t, 2, r.NavigationLinks)
	assert.Equal(t, 3, r.ContentLinks)
	assert.Equal(t, 100.0, r.Score)
	assert.Empty(t, r.Issues)
}

func TestAnalyzeLinks_NoInternalLinks(t *testing.T) {
	html := `<html><body><a href="https://example.org/x">Out</a></body></html>`
	page := testPage(t, html, &model.ExtractedPage{URL: "https://acme.com/p"})

	r := AnalyzeLinks(page, config.AnalyzeConfig{})
	assert.Zero(t, r.Internal)
	assert.Equal(t, 60.0, r.Score)
	assert.Contains(t, r.Issues, "page has no internal links")
}

func TestAnalyzeLinks_BelowOptimalRange(t *testing.T) {
	html := `<html><body><a href="/a">One page</a></body></html>`
	page := testPage(t, html, &model.ExtractedPage{URL: "https://acme.com/p"})

	r := AnalyzeLinks(page, config.AnalyzeConfig{})
	assert.Equal(t, 1, r.Internal)
	assert.Equal(t, 85.0, r.Score)
	assert.Contains(t, r.Issues, "fewer internal links than the optimal range")
}

func TestAnalyzeLinks_AboveOptimalRange(t *testing.T) {
	html := "<html><body>"
	for i := 0; i < 4; i++ {
		html += `<a href="/a">a</a><a href="/b">b</a><a href="/c">c</a>`
	}
	html += "</body></html>"
	page := testPage(t, html, &model.ExtractedPage{URL: "https://acme.com/p"})

	r := AnalyzeLinks(page, config.AnalyzeConfig{OptimalInternalMax: 10})
	assert.Equal(t, 12, r.Internal)
	assert.Equal(t, 90.0, r.Score)
	assert.Contains(t, r.Issues, "more internal links than the optimal range")
}

func TestAnalyzeLinks_AnchorQualityPenalties(t *testing.T) {
	html := `<html><body>
		<a href="/a">Pricing plans</a>
		<a href="/b">Installation guide</a>
		<a href="/c">click here</a>
		<a href="/d">Read More</a>
		<a href="/e"></a>
		<a href="/f"><img src="x.png" alt="Dashboard screenshot"></a>
	</body></html>`
	page := testPage(t, html, &model.ExtractedPage{URL: "https://acme.com/p"})

	r := AnalyzeLinks(page, config.AnalyzeConfig{})
	assert.Equal(t, 2, r.GenericAnchors)
	assert.Equal(t, 1, r.EmptyAnchors)
	// 100 - 5*2 generic - 5 empty.
	assert.Equal(t, 85.0, r.Score)
	assert.Contains(t, r.Issues, "links with empty anchor text")
}

func TestAnalyzeLinks_SkipsNonNavigableHrefs(t *testing.T) {
	html := `<html><body>
		<a href="#section">Jump</a>
		<a href="mailto:hi@acme.com">Mail</a>
		<a href="tel:+15550100">Call</a>
		<a href="javascript:void(0)">JS</a>
	</body></html>`
	page := testPage(t, html, &model.ExtractedPage{URL: "https://acme.com/p"})

	r := AnalyzeLinks(page, config.AnalyzeConfig{})
	assert.Zero(t, r.Internal)
	assert.Zero(t, r.External)
}

func TestAnalyzeLinks_NilDoc(t *testing.T) {
	r := AnalyzeLinks(Page{Extracted: &model.ExtractedPage{}}, config.AnalyzeConfig{})
	assert.Zero(t, r.Score)
	assert.Equal(t, model.LevelLimited, r.Level)
}
