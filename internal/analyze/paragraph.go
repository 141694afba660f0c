package analyze

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/findablehq/findable-cli/internal/model"
)

// Paragraph targets: an optimal paragraph has at most four sentences
// and at most a hundred words.
const (
	optimalMaxSentences = 4
	optimalMaxWords     = 100
)

// abbreviations end with a period without ending a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "st": true, "vs": true, "etc": true,
	"inc": true, "ltd": true, "co": true, "corp": true,
	"e.g": true, "i.e": true, "cf": true, "al": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "sept": true, "oct": true,
	"nov": true, "dec": true, "no": true, "vol": true, "fig": true,
}

// ParagraphStat describes one paragraph of the page.
type ParagraphStat struct {
	Sentences int  `json:"sentences"`
	Words     int  `json:"words"`
	Optimal   bool `json:"optimal"`
}

// ParagraphResult reports paragraph quality for one page.
type ParagraphResult struct {
	Score            float64         `json:"score"`
	Level            model.Level     `json:"level"`
	ParagraphCount   int             `json:"paragraph_count"`
	OptimalCount     int             `json:"optimal_count"`
	OptimalRatio     float64         `json:"optimal_ratio"`
	AvgSentences     float64         `json:"avg_sentences"`
	AvgWords         float64         `json:"avg_words"`
	LongParagraphs   int             `json:"long_paragraphs"`
	Stats            []ParagraphStat `json:"stats,omitempty"`
	Issues           []string        `json:"issues,omitempty"`
}

// AnalyzeParagraphs measures sentence and word counts per <p>. Long
// paragraphs and high average sentence counts are penalized; a high
// optimal ratio is rewarded.
func AnalyzeParagraphs(page Page) ParagraphResult {
	r := ParagraphResult{}

	if page.Doc == nil {
		r.Level = model.LevelLimited
		r.Issues = append(r.Issues, "page HTML could not be parsed")
		return r
	}

	var totalSentences, totalWords int
	page.Doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		sentences := CountSentences(text)
		words := len(strings.Fields(text))

		stat := ParagraphStat{
			Sentences: sentences,
			Words:     words,
			Optimal:   sentences <= optimalMaxSentences && words <= optimalMaxWords,
		}
		r.Stats = append(r.Stats, stat)
		r.ParagraphCount++
		totalSentences += sentences
		totalWords += words
		if stat.Optimal {
			r.OptimalCount++
		}
		if words > optimalMaxWords {
			r.LongParagraphs++
		}
	})

	if r.ParagraphCount == 0 {
		r.Level = model.LevelLimited
		r.Issues = append(r.Issues, "page has no paragraph elements")
		return r
	}

	r.OptimalRatio = float64(r.OptimalCount) / float64(r.ParagraphCount)
	r.AvgSentences = float64(totalSentences) / float64(r.ParagraphCount)
	r.AvgWords = float64(totalWords) / float64(r.ParagraphCount)

	score := 100 * r.OptimalRatio
	if r.AvgSentences > float64(optimalMaxSentences) {
		score -= (r.AvgSentences - optimalMaxSentences) * 5
	}
	if r.LongParagraphs > 0 {
		score -= float64(5 * r.LongParagraphs)
		r.Issues = append(r.Issues, "paragraphs over 100 words are hard to lift into answers")
	}
	if r.OptimalRatio < 0.5 {
		r.Issues = append(r.Issues, "fewer than half of paragraphs are answer-sized")
	}

	r.Score = clamp(score)
	r.Level = model.LevelForScore(r.Score)
	return r
}

// CountSentences counts sentence boundaries in text, guarding against
// common abbreviations ("Dr.", "Inc.") and decimal numbers ("3.14").
func CountSentences(text string) int {
	runes := []rune(text)
	count := 0

	for i, r := range runes {
		switch r {
		case '!', '?':
			count++
		case '.':
			// Decimal number: digit on both sides.
			if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
				continue
			}
			// Abbreviation: the word before the period is known.
			if abbreviations[lastWord(runes[:i])] {
				continue
			}
			// Period glued to a letter ("e.g.", "acme.com") is not a
			// boundary.
			if i+1 < len(runes) && unicode.IsLetter(runes[i+1]) {
				continue
			}
			// Ellipsis counts once, at its final dot.
			if i+1 < len(runes) && runes[i+1] == '.' {
				continue
			}
			count++
		}
	}

	if count == 0 && strings.TrimSpace(text) != "" {
		return 1
	}
	return count
}

// lastWord returns the lowercased word ending at the given position.
func lastWord(runes []rune) string {
	end := len(runes)
	start := end
	for start > 0 {
		r := runes[start-1]
		if unicode.IsLetter(r) || r == '.' && start < end {
			start--
			continue
		}
		break
	}
	return strings.ToLower(strings.TrimSuffix(string(runes[start:end]), "."))
}
