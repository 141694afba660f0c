package analyze

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findablehq/findable-cli/internal/model"
)

// testPage builds a Page from raw HTML and an extracted-page skeleton.
func testPage(t *testing.T, html string, extracted *model.ExtractedPage) Page {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	if extracted == nil {
		extracted = &model.ExtractedPage{URL: "https://acme.com/page"}
	}
	return Page{Extracted: extracted, Doc: doc}
}

func TestAnalyzeHeadings_CleanHierarchy(t *testing.T) {
	page := testPage(t, `<html><body><h1>Widgets</h1><h2>Pricing</h2><h2>Support</h2></body></html>`,
		&model.ExtractedPage{
			URL: "https://acme.com/widgets",
			Metadata: model.PageMetadata{Headings: model.Headings{
				H1: []string{"Widgets"},
				H2: []string{"Pricing", "Support"},
			}},
		})

	r := AnalyzeHeadings(page)
	assert.Equal(t, 100.0, r.Score)
	assert.Equal(t, model.LevelFull, r.Level)
	assert.Equal(t, 1, r.H1Count)
	assert.Equal(t, 3, r.TotalHeadings)
	assert.Empty(t, r.Issues)
}

func TestAnalyzeHeadings_MissingH1(t *testing.T) {
	page := testPage(t, `<html><body><h2>Pricing</h2></body></html>`,
		&model.ExtractedPage{Metadata: model.PageMetadata{Headings: model.Headings{
			H2: []string{"Pricing"},
		}}})

	r := AnalyzeHeadings(page)
	assert.Equal(t, 0, r.H1Count)
	// -30 for the missing h1, -10 for the h1->h2 skip.
	assert.Equal(t, 60.0, r.Score)
	assert.Contains(t, r.Issues, "page has no h1")
	assert.Equal(t, []string{"h1->h2"}, r.SkippedLevels)
}

func TestAnalyzeHeadings_MultipleH1(t *testing.T) {
	page := testPage(t, `<html><body><h1>A</h1><h1>B</h1></body></html>`,
		&model.ExtractedPage{Metadata: model.PageMetadata{Headings: model.Headings{
			H1: []string{"A", "B"},
		}}})

	r := AnalyzeHeadings(page)
	assert.Equal(t, 2, r.H1Count)
	assert.Equal(t, 80.0, r.Score)
	assert.Contains(t, r.Issues, "page has multiple h1 headings")
}

func TestAnalyzeHeadings_SkippedLevel(t *testing.T) {
	page := testPage(t, `<html><body><h1>Guide</h1><h3>Detail</h3></body></html>`,
		&model.ExtractedPage{Metadata: model.PageMetadata{Headings: model.Headings{
			H1: []string{"Guide"},
			H3: []string{"Detail"},
		}}})

	r := AnalyzeHeadings(page)
	assert.Equal(t, []string{"h2->h3"}, r.SkippedLevels)
	assert.Equal(t, 90.0, r.Score)
}

func TestAnalyzeHeadings_DuplicatesAndEmpties(t *testing.T) {
	page := testPage(t, `<html><body><h1>Guide</h1><h2>Setup</h2><h2>setup</h2><h2></h2></body></html>`,
		&model.ExtractedPage{Metadata: model.PageMetadata{Headings: model.Headings{
			H1: []string{"Guide"},
			H2: []string{"Setup", "setup"},
		}}})

	r := AnalyzeHeadings(page)
	assert.Equal(t, []string{"setup"}, r.Duplicates)
	assert.Equal(t, 1, r.EmptyHeadings)
	// -5 for the duplicate, -5 for the empty heading.
	assert.Equal(t, 90.0, r.Score)
}

func TestAnalyzeHeadings_NoHeadings(t *testing.T) {
	page := testPage(t, `<html><body><p>Just text.</p></body></html>`,
		&model.ExtractedPage{})

	r := AnalyzeHeadings(page)
	assert.Equal(t, 0.0, r.Score)
	assert.Equal(t, model.LevelLimited, r.Level)
	assert.Contains(t, r.Issues, "page has no headings at all")
}

func TestAnalyzeHeadings_NilDoc(t *testing.T) {
	r := AnalyzeHeadings(Page{Extracted: &model.ExtractedPage{}})
	assert.Equal(t, 0.0, r.Score)
	assert.Equal(t, model.LevelLimited, r.Level)
	assert.Contains(t, r.Issues, "page HTML could not be parsed")
}

func TestAnalyzeHeadings_AnswerFriendlyCounts(t *testing.T) {
	page := testPage(t, `<html><body><h1>Widgets</h1></body></html>`,
		&model.ExtractedPage{Metadata: model.PageMetadata{Headings: model.Headings{
			H1: []string{"Widgets"},
			H2: []string{"What is a widget?", "How to install widgets", "Frequently Asked Questions"},
		}}})

	r := AnalyzeHeadings(page)
	// "How to install widgets" opens with a question word, so it counts
	// as both a question and a how-to heading.
	assert.Equal(t, 2, r.QuestionHeadings)
	assert.Equal(t, 1, r.FAQHeadings)
	assert.Equal(t, 1, r.HowToHeadings)
}
