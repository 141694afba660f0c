package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findablehq/findable-cli/internal/analyze"
	"github.com/findablehq/findable-cli/internal/model"
)

func schemaPage(score float64, types []string, parseErrors int, hasFAQ bool) analyze.PageAnalysis {
	return analyze.PageAnalysis{
		Schema: analyze.SchemaResult{
			Score:       score,
			Types:       types,
			BlockCount:  len(types),
			ParseErrors: parseErrors,
			HasFAQPage:  hasFAQ,
		},
	}
}

func TestScoreSchema_HealthySite(t *testing.T) {
	pages := []analyze.PageAnalysis{
		schemaPage(90, []string{"Organization", "WebSite"}, 0, false),
		schemaPage(80, []string{"FAQPage", "Product"}, 0, true),
	}
	pillar, issues := ScoreSchema(pages, 15)

	assert.InDelta(t, 85.0, pillar.RawScore, 1e-9)
	assert.True(t, pillar.Evaluated)
	assert.Empty(t, issues)
	require.Len(t, pillar.Components, 3)

	byName := map[string]model.PillarComponent{}
	for _, c := range pillar.Components {
		byName[c.Name] = c
	}
	assert.InDelta(t, 100.0, byName["page_coverage"].RawScore, 1e-9)
	// Four distinct types at 20 points each.
	assert.InDelta(t, 80.0, byName["type_breadth"].RawScore, 1e-9)
	assert.InDelta(t, 100.0, byName["validity"].RawScore, 1e-9)
}

func TestScoreSchema_MissingOrganization(t *testing.T) {
	pages := []analyze.PageAnalysis{
		schemaPage(60, []string{"WebSite"}, 0, true),
	}
	_, issues := ScoreSchema(pages, 15)

	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "Organization")
}

func TestScoreSchema_MissingFAQPage(t *testing.T) {
	pages := []analyze.PageAnalysis{
		schemaPage(60, []string{"Organization"}, 0, false),
	}
	_, issues := ScoreSchema(pages, 15)

	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "FAQPage")
}

func TestScoreSchema_ParseErrors(t *testing.T) {
	pages := []analyze.PageAnalysis{
		schemaPage(50, []string{"Organization", "FAQPage"}, 2, true),
		schemaPage(50, nil, 0, false),
	}
	pillar, issues := ScoreSchema(pages, 15)

	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "2 JSON-LD blocks failed to parse")

	byName := map[string]model.PillarComponent{}
	for _, c := range pillar.Components {
		byName[c.Name] = c
	}
	// Two errors across two pages empties the validity component.
	assert.InDelta(t, 0.0, byName["validity"].RawScore, 1e-9)
}

func TestScoreSchema_NoPages(t *testing.T) {
	pillar, issues := ScoreSchema(nil, 15)
	assert.False(t, pillar.Evaluated)
	assert.Equal(t, model.PillarSchema, pillar.Name)
	assert.Empty(t, issues)
}

func TestScoreSchema_NoSchemaAtAll(t *testing.T) {
	pages := []analyze.PageAnalysis{schemaPage(0, nil, 0, false)}
	pillar, issues := ScoreSchema(pages, 15)

	assert.InDelta(t, 0.0, pillar.RawScore, 1e-9)
	// Organization missing; the FAQPage warning needs at least one type.
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "Organization")
}
