package analyze

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/findablehq/findable-cli/internal/model"
)

// valuableSchemaTypes are the types AI engines actually consume, with
// the points each contributes.
var valuableSchemaTypes = map[string]float64{
	"Organization":    20,
	"WebSite":         10,
	"WebPage":         5,
	"Article":         15,
	"BlogPosting":     15,
	"NewsArticle":     15,
	"FAQPage":         25,
	"HowTo":           20,
	"Product":         20,
	"Service":         15,
	"BreadcrumbList":  10,
	"LocalBusiness":   20,
	"SoftwareApplication": 15,
	"Person":          10,
}

// requiredSchemaFields are checked per type when validating JSON-LD
// blocks.
var requiredSchemaFields = map[string][]string{
	"Organization": {"name"},
	"Article":      {"headline"},
	"BlogPosting":  {"headline"},
	"FAQPage":      {"mainEntity"},
	"Product":      {"name"},
	"HowTo":        {"name", "step"},
}

// SchemaResult reports structured-data richness for one page.
type SchemaResult struct {
	Score         float64     `json:"score"`
	Level         model.Level `json:"level"`
	Types         []string    `json:"types,omitempty"`
	BlockCount    int         `json:"block_count"`
	ParseErrors   int         `json:"parse_errors"`
	FieldErrors   []string    `json:"field_errors,omitempty"`
	HasFAQPage    bool        `json:"has_faq_page"`
	FAQQuestions  int         `json:"faq_questions"`
	Issues        []string    `json:"issues,omitempty"`
}

// AnalyzeSchema scores the presence and validity of schema.org
// structured data. FAQPage earns a bonus; malformed JSON-LD and
// missing required fields count as errors but never fail the page.
func AnalyzeSchema(page Page) SchemaResult {
	r := SchemaResult{Types: page.Extracted.Metadata.SchemaTypes}

	if page.Doc == nil {
		r.Level = model.LevelLimited
		r.Issues = append(r.Issues, "page HTML could not be parsed")
		return r
	}

	score := 0.0
	counted := make(map[string]bool)

	page.Doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		r.BlockCount++

		var parsed any
		if err := json.Unmarshal([]byte(sel.Text()), &parsed); err != nil {
			r.ParseErrors++
			return
		}
		validateSchemaNode(parsed, &r)
	})

	for _, t := range r.Types {
		if counted[t] {
			continue
		}
		counted[t] = true
		score += valuableSchemaTypes[t]
		if t == "FAQPage" {
			r.HasFAQPage = true
		}
	}

	// FAQPage bonus scales with its question count.
	if r.HasFAQPage && r.FAQQuestions >= 3 {
		score += 10
	}

	if len(r.Types) == 0 {
		r.Issues = append(r.Issues, "no schema.org structured data found")
	}
	if r.ParseErrors > 0 {
		score -= float64(10 * r.ParseErrors)
		r.Issues = append(r.Issues, "malformed JSON-LD blocks")
	}
	if len(r.FieldErrors) > 0 {
		score -= float64(5 * len(r.FieldErrors))
		r.Issues = append(r.Issues, "schema blocks missing required fields: "+strings.Join(r.FieldErrors, ", "))
	}

	r.Score = clamp(score)
	r.Level = model.LevelForScore(r.Score)
	return r
}

// validateSchemaNode walks a decoded JSON-LD value checking required
// fields and counting FAQPage questions.
func validateSchemaNode(node any, r *SchemaResult) {
	switch v := node.(type) {
	case map[string]any:
		if t, ok := v["@type"].(string); ok {
			for _, field := range requiredSchemaFields[t] {
				if _, present := v[field]; !present {
					r.FieldErrors = append(r.FieldErrors, t+"."+field)
				}
			}
			if t == "FAQPage" {
				if entities, ok := v["mainEntity"].([]any); ok {
					r.FAQQuestions += len(entities)
				}
			}
		}
		for key, child := range v {
			if key == "@type" {
				continue
			}
			validateSchemaNode(child, r)
		}
	case []any:
		for _, item := range v {
			validateSchemaNode(item, r)
		}
	}
}
