package analyze

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/findablehq/findable-cli/internal/model"
)

// maxHeadingLength is the longest heading that still reads as a
// heading rather than a paragraph.
const maxHeadingLength = 70

// questionWords open headings that AI engines lift directly into
// answers.
var questionWords = []string{"what", "how", "why", "when", "where", "who", "which", "can", "should", "does", "is "}

// HeadingResult reports heading hierarchy quality for one page.
type HeadingResult struct {
	Score            float64     `json:"score"`
	Level            model.Level `json:"level"`
	H1Count          int         `json:"h1_count"`
	TotalHeadings    int         `json:"total_headings"`
	SkippedLevels    []string    `json:"skipped_levels,omitempty"`
	Duplicates       []string    `json:"duplicates,omitempty"`
	EmptyHeadings    int         `json:"empty_headings"`
	OverlongHeadings int         `json:"overlong_headings"`
	QuestionHeadings int         `json:"question_headings"`
	FAQHeadings      int         `json:"faq_headings"`
	HowToHeadings    int         `json:"how_to_headings"`
	Issues           []string    `json:"issues,omitempty"`
}

// AnalyzeHeadings checks the heading hierarchy: exactly one h1, no
// skipped levels, no duplicates or empties, and flags question/FAQ/
// how-to headings that favor AI answer extraction.
func AnalyzeHeadings(page Page) HeadingResult {
	r := HeadingResult{Score: 100}

	if page.Doc == nil {
		r.Score = 0
		r.Level = model.LevelLimited
		r.Issues = append(r.Issues, "page HTML could not be parsed")
		return r
	}

	headings := page.Extracted.Metadata.Headings
	byLevel := [][]string{headings.H1, headings.H2, headings.H3, headings.H4, headings.H5, headings.H6}

	r.H1Count = len(headings.H1)
	for _, hs := range byLevel {
		r.TotalHeadings += len(hs)
	}

	switch r.H1Count {
	case 0:
		r.Score -= 30
		r.Issues = append(r.Issues, "page has no h1")
	case 1:
		// Exactly one h1 is the target.
	default:
		r.Score -= 20
		r.Issues = append(r.Issues, "page has multiple h1 headings")
	}

	if r.TotalHeadings == 0 {
		r.Score = 0
		r.Level = model.LevelLimited
		r.Issues = append(r.Issues, "page has no headings at all")
		return r
	}

	// Skipped levels: a populated level whose parent level is empty,
	// e.g. h3 content under an h1 with no h2.
	deepest := 0
	for level := 0; level < 6; level++ {
		if len(byLevel[level]) > 0 {
			deepest = level
		}
	}
	for level := 1; level <= deepest; level++ {
		if len(byLevel[level]) > 0 && len(byLevel[level-1]) == 0 {
			skip := "h" + string(rune('1'+level-1)) + "->h" + string(rune('1'+level))
			r.SkippedLevels = append(r.SkippedLevels, skip)
		}
	}
	if len(r.SkippedLevels) > 0 {
		r.Score -= float64(10 * len(r.SkippedLevels))
		r.Issues = append(r.Issues, "heading levels skipped: "+strings.Join(r.SkippedLevels, ", "))
	}

	seen := make(map[string]bool)
	for _, hs := range byLevel {
		for _, h := range hs {
			key := strings.ToLower(strings.TrimSpace(h))
			if key == "" {
				continue
			}
			if seen[key] {
				r.Duplicates = append(r.Duplicates, h)
			}
			seen[key] = true

			if len(h) > maxHeadingLength {
				r.OverlongHeadings++
			}
			if isQuestionHeading(key) {
				r.QuestionHeadings++
			}
			if strings.Contains(key, "faq") || strings.Contains(key, "frequently asked") {
				r.FAQHeadings++
			}
			if strings.HasPrefix(key, "how to") || strings.HasPrefix(key, "how do") {
				r.HowToHeadings++
			}
		}
	}

	// Empty headings only show up in the DOM; extraction drops them.
	page.Doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if strings.TrimSpace(s.Text()) == "" {
			r.EmptyHeadings++
		}
	})

	if len(r.Duplicates) > 0 {
		r.Score -= float64(5 * len(r.Duplicates))
		r.Issues = append(r.Issues, "duplicate headings found")
	}
	if r.EmptyHeadings > 0 {
		r.Score -= float64(5 * r.EmptyHeadings)
		r.Issues = append(r.Issues, "empty headings found")
	}
	if r.OverlongHeadings > 0 {
		r.Score -= float64(3 * r.OverlongHeadings)
		r.Issues = append(r.Issues, "headings over 70 characters read as paragraphs")
	}

	r.Score = clamp(r.Score)
	r.Level = model.LevelForScore(r.Score)
	return r
}

func isQuestionHeading(lower string) bool {
	if strings.HasSuffix(lower, "?") {
		return true
	}
	for _, w := range questionWords {
		if strings.HasPrefix(lower, w) {
			return true
		}
	}
	return false
}
