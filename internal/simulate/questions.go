// Package simulate synthesizes buyer questions from site context and
// scores whether the retrieval index can answer them.
package simulate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/findablehq/findable-cli/internal/model"
)

// SiteContext is everything the question generator knows about a site.
type SiteContext struct {
	CompanyName string
	Domain      string
	SchemaTypes []string
	// Headings are the crawled pages' h2/h3 texts, used to derive
	// topic-specific questions.
	Headings []string
}

// GenerateQuestions produces a deterministic question bank of up to
// count questions partitioned across the six categories. Identical
// context yields an identical bank in identical order. No randomness.
func GenerateQuestions(sc SiteContext, count int) []model.Question {
	if count <= 0 {
		count = 24
	}
	name := sc.CompanyName
	if name == "" {
		name = sc.Domain
	}

	var bank []model.Question
	add := func(cat model.QuestionCategory, diff model.Difficulty, text string, signals ...string) {
		bank = append(bank, model.Question{
			ID:              fmt.Sprintf("%s-%02d", cat, categoryCount(bank, cat)+1),
			Text:            text,
			Category:        cat,
			Difficulty:      diff,
			ExpectedSignals: signals,
		})
	}

	lower := strings.ToLower(name)

	add(model.CategoryIdentity, model.DifficultyEasy,
		fmt.Sprintf("What is %s?", name), lower)
	add(model.CategoryIdentity, model.DifficultyEasy,
		fmt.Sprintf("What does %s do?", name), lower)
	add(model.CategoryIdentity, model.DifficultyMedium,
		fmt.Sprintf("Who is %s for?", name), lower, "customers")
	add(model.CategoryIdentity, model.DifficultyMedium,
		fmt.Sprintf("Where is %s based?", name), lower, "location")

	add(model.CategoryOfferings, model.DifficultyEasy,
		fmt.Sprintf("What products or services does %s offer?", name), lower, "product", "service")
	add(model.CategoryOfferings, model.DifficultyMedium,
		fmt.Sprintf("How much does %s cost?", name), "pricing", "price", "plan")
	add(model.CategoryOfferings, model.DifficultyMedium,
		fmt.Sprintf("What features does %s have?", name), "feature", lower)
	add(model.CategoryOfferings, model.DifficultyHard,
		fmt.Sprintf("Does %s offer a free trial?", name), "trial", "free")

	add(model.CategoryHowTo, model.DifficultyEasy,
		fmt.Sprintf("How do I get started with %s?", name), "get started", "sign up", "setup")
	add(model.CategoryHowTo, model.DifficultyMedium,
		fmt.Sprintf("How do I contact %s?", name), "contact", "support", "email")
	add(model.CategoryHowTo, model.DifficultyMedium,
		fmt.Sprintf("How do I integrate %s with my existing tools?", name), "integration", "api")

	add(model.CategoryComparison, model.DifficultyHard,
		fmt.Sprintf("How does %s compare to its competitors?", name), "compare", "alternative", "versus")
	add(model.CategoryComparison, model.DifficultyHard,
		fmt.Sprintf("What are the alternatives to %s?", name), "alternative", lower)
	add(model.CategoryComparison, model.DifficultyMedium,
		fmt.Sprintf("Why choose %s?", name), "why", "benefit", lower)

	add(model.CategoryFAQ, model.DifficultyEasy,
		fmt.Sprintf("Is %s secure?", name), "security", "encryption", "compliance")
	add(model.CategoryFAQ, model.DifficultyMedium,
		fmt.Sprintf("What support does %s provide?", name), "support", "help")
	add(model.CategoryFAQ, model.DifficultyMedium,
		fmt.Sprintf("Can I cancel my %s subscription?", name), "cancel", "refund", "subscription")

	add(model.CategoryTechnical, model.DifficultyMedium,
		fmt.Sprintf("Does %s have an API?", name), "api", "endpoint", "documentation")
	add(model.CategoryTechnical, model.DifficultyHard,
		fmt.Sprintf("What platforms does %s support?", name), "platform", "support", "requirements")
	add(model.CategoryTechnical, model.DifficultyHard,
		fmt.Sprintf("How does %s handle data privacy?", name), "privacy", "data", "gdpr")

	bank = append(bank, schemaQuestions(name, sc.SchemaTypes, len(bank))...)
	bank = append(bank, headingQuestions(sc.Headings)...)

	if len(bank) > count {
		bank = bank[:count]
	}
	return bank
}

// schemaQuestions derives extra questions from declared schema types,
// in sorted type order to keep the bank deterministic.
func schemaQuestions(name string, schemaTypes []string, _ int) []model.Question {
	seen := make(map[string]bool)
	var types []string
	for _, t := range schemaTypes {
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	sort.Strings(types)

	var out []model.Question
	n := 0
	for _, t := range types {
		var q model.Question
		switch t {
		case "FAQPage":
			q = model.Question{
				Category:        model.CategoryFAQ,
				Difficulty:      model.DifficultyEasy,
				Text:            fmt.Sprintf("What are the most common questions about %s?", name),
				ExpectedSignals: []string{"faq", "question"},
			}
		case "Product":
			q = model.Question{
				Category:        model.CategoryOfferings,
				Difficulty:      model.DifficultyMedium,
				Text:            fmt.Sprintf("What are the specifications of %s's products?", name),
				ExpectedSignals: []string{"product", "specification"},
			}
		case "HowTo":
			q = model.Question{
				Category:        model.CategoryHowTo,
				Difficulty:      model.DifficultyMedium,
				Text:            fmt.Sprintf("What step-by-step guides does %s publish?", name),
				ExpectedSignals: []string{"step", "guide", "how to"},
			}
		default:
			continue
		}
		n++
		q.ID = fmt.Sprintf("%s-s%02d", q.Category, n)
		out = append(out, q)
	}
	return out
}

// headingQuestions turns question-form headings found on the site into
// direct simulation questions, capped at five.
func headingQuestions(headings []string) []model.Question {
	var out []model.Question
	seen := make(map[string]bool)
	for _, h := range headings {
		h = strings.TrimSpace(h)
		if !strings.HasSuffix(h, "?") || len(h) < 12 {
			continue
		}
		key := strings.ToLower(h)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Question{
			ID:              fmt.Sprintf("%s-h%02d", model.CategoryFAQ, len(out)+1),
			Text:            h,
			Category:        model.CategoryFAQ,
			Difficulty:      model.DifficultyEasy,
			ExpectedSignals: significantTerms(h, 3),
		})
		if len(out) == 5 {
			break
		}
	}
	return out
}

// significantTerms picks up to n content-bearing words from a heading.
func significantTerms(text string, n int) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(strings.TrimSuffix(text, "?"))) {
		w = strings.Trim(w, ".,:;'\"")
		if len(w) < 4 || questionStopwords[w] {
			continue
		}
		out = append(out, w)
		if len(out) == n {
			break
		}
	}
	return out
}

var questionStopwords = map[string]bool{
	"what": true, "when": true, "where": true, "which": true, "does": true,
	"how": true, "why": true, "who": true, "can": true, "should": true,
	"your": true, "with": true, "from": true, "this": true, "that": true,
	"have": true, "much": true, "many": true,
}

func categoryCount(bank []model.Question, cat model.QuestionCategory) int {
	n := 0
	for _, q := range bank {
		if q.Category == cat {
			n++
		}
	}
	return n
}
