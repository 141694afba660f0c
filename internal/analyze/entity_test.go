package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/findablehq/findable-cli/internal/model"
)

func entityPage(t *testing.T, fullText, ogSiteName string, schemaTypes []string) Page {
	t.Helper()
	return testPage(t, "<html><body><p>x</p></body></html>", &model.ExtractedPage{
		URL:      "https://acme.com/p",
		FullText: fullText,
		Metadata: model.PageMetadata{OGSiteName: ogSiteName, SchemaTypes: schemaTypes},
	})
}

func TestAnalyzeEntity_ConsistentSite(t *testing.T) {
	pages := []Page{
		entityPage(t, "Acme builds telemetry. Acme ships fast.", "Acme", []string{"Organization"}),
		entityPage(t, "Contact acme for pricing.", "Acme", nil),
	}

	r := AnalyzeEntity(pages, "Acme")
	assert.Equal(t, 3, r.NameMentions)
	assert.Equal(t, 2, r.PagesWithName)
	assert.True(t, r.HasOrganization)
	assert.True(t, r.ConsistentOG)
	// 60 full coverage + 25 organization + 15 og agreement.
	assert.Equal(t, 100.0, r.Score)
	assert.Empty(t, r.Issues)
}

func TestAnalyzeEntity_LowCoverage(t *testing.T) {
	pages := []Page{
		entityPage(t, "Acme overview.", "", nil),
		entityPage(t, "Generic blog post.", "", nil),
		entityPage(t, "Another generic post.", "", nil),
	}

	r := AnalyzeEntity(pages, "Acme")
	assert.Equal(t, 1, r.PagesWithName)
	assert.Equal(t, 20.0, r.Score)
	assert.Contains(t, r.Issues, "company name appears on fewer than half of pages")
	assert.Contains(t, r.Issues, "no Organization schema declaring the entity")
}

func TestAnalyzeEntity_OGDisagreement(t *testing.T) {
	pages := []Page{
		entityPage(t, "Acme here.", "Acme", []string{"Organization"}),
		entityPage(t, "Acme there.", "Acme Inc", nil),
	}

	r := AnalyzeEntity(pages, "Acme")
	assert.False(t, r.ConsistentOG)
	// 60 + 25, no og bonus.
	assert.Equal(t, 85.0, r.Score)
	assert.Contains(t, r.Issues, "og:site_name disagrees with the company name on some pages")
}

func TestAnalyzeEntity_NoCompanyName(t *testing.T) {
	r := AnalyzeEntity([]Page{entityPage(t, "text", "", nil)}, "")
	assert.Equal(t, model.LevelLimited, r.Level)
	assert.Contains(t, r.Issues, "no company name to check entity consistency against")
}

func TestAnalyzeEntity_CaseInsensitiveMentions(t *testing.T) {
	pages := []Page{entityPage(t, "ACME and acme and Acme.", "", nil)}

	r := AnalyzeEntity(pages, "acme")
	assert.Equal(t, 3, r.NameMentions)
}
