package analyze

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/findablehq/findable-cli/internal/model"
)

// Structure sub-score weights; they sum to 1.0.
const (
	weightHeadings      = 0.20
	weightAnswerFirst   = 0.15
	weightAIAnswerBlock = 0.15
	weightReadability   = 0.15
	weightFAQ           = 0.15
	weightLinks         = 0.10
	weightFormats       = 0.10
)

// AI-answer-block bounds: the first substantive paragraph after the h1
// should be a 40-80 word definition.
const (
	answerBlockMinWords = 40
	answerBlockMaxWords = 80
)

// definitionPatterns mark a sentence as definitional.
var definitionPatterns = []string{
	" is a ", " is an ", " is the ", " are a ", " are the ",
	" refers to ", " means ", " describes ", " provides ", " helps ",
	" enables ", " allows ",
}

// genericOpeners start paragraphs that bury the topic.
var genericOpeners = []string{
	"welcome to", "in this article", "in this post", "in this guide",
	"this article", "this post", "this page", "here at", "at our",
	"have you ever", "it is no secret", "it's no secret",
}

// AnswerFirstResult checks whether the page leads with its answer.
type AnswerFirstResult struct {
	Score          float64 `json:"score"`
	FirstParaWords int     `json:"first_para_words"`
	LeadsWithTopic bool    `json:"leads_with_topic"`
	Issues         []string `json:"issues,omitempty"`
}

// AIAnswerBlockResult checks the first substantive paragraph after the
// h1: 40-80 words, topic-leading, definitional.
type AIAnswerBlockResult struct {
	Score         float64 `json:"score"`
	Found         bool    `json:"found"`
	Words         int     `json:"words"`
	StartsOnTopic bool    `json:"starts_on_topic"`
	HasDefinition bool    `json:"has_definition"`
	Text          string  `json:"text,omitempty"`
	Issues        []string `json:"issues,omitempty"`
}

// FAQResult checks for FAQ structure on the page.
type FAQResult struct {
	Score         float64 `json:"score"`
	HasFAQSection bool    `json:"has_faq_section"`
	QuestionCount int     `json:"question_count"`
	HasFAQSchema  bool    `json:"has_faq_schema"`
	Issues        []string `json:"issues,omitempty"`
}

// FormatsResult checks for answer-friendly content formats: lists,
// tables, code blocks, definition lists.
type FormatsResult struct {
	Score      float64 `json:"score"`
	Lists      int     `json:"lists"`
	Tables     int     `json:"tables"`
	CodeBlocks int     `json:"code_blocks"`
	Issues     []string `json:"issues,omitempty"`
}

// ReadabilityResult checks sentence and paragraph ergonomics: 2-4
// sentences per paragraph, 15-22 words per sentence, no paragraph over
// 150 words.
type ReadabilityResult struct {
	Score           float64 `json:"score"`
	AvgSentenceLen  float64 `json:"avg_sentence_len"`
	AvgParaSentences float64 `json:"avg_para_sentences"`
	LongestParaWords int    `json:"longest_para_words"`
	Issues          []string `json:"issues,omitempty"`
}

// StructureResult is the composite structure analysis for one page.
type StructureResult struct {
	Score       float64             `json:"score"`
	Level       model.Level         `json:"level"`
	AnswerFirst AnswerFirstResult   `json:"answer_first"`
	AnswerBlock AIAnswerBlockResult `json:"ai_answer_block"`
	FAQ         FAQResult           `json:"faq"`
	Formats     FormatsResult       `json:"formats"`
	Readability ReadabilityResult   `json:"readability"`
	Issues      []string            `json:"issues,omitempty"`
}

// AnalyzeStructure combines the five structure sub-analyses with the
// heading and link results under fixed weights.
func AnalyzeStructure(page Page, heading HeadingResult, links LinkResult, paragraphs ParagraphResult) StructureResult {
	r := StructureResult{}

	if page.Doc == nil {
		r.Level = model.LevelLimited
		r.Issues = append(r.Issues, "page HTML could not be parsed")
		return r
	}

	r.AnswerFirst = analyzeAnswerFirst(page)
	r.AnswerBlock = analyzeAnswerBlock(page)
	r.FAQ = analyzeFAQ(page, heading)
	r.Formats = analyzeFormats(page)
	r.Readability = analyzeReadability(paragraphs)

	r.Score = clamp(
		heading.Score*weightHeadings +
			r.AnswerFirst.Score*weightAnswerFirst +
			r.AnswerBlock.Score*weightAIAnswerBlock +
			r.Readability.Score*weightReadability +
			r.FAQ.Score*weightFAQ +
			links.Score*weightLinks +
			r.Formats.Score*weightFormats,
	)
	r.Level = model.LevelForScore(r.Score)

	for _, sub := range [][]string{
		r.AnswerFirst.Issues, r.AnswerBlock.Issues, r.FAQ.Issues,
		r.Formats.Issues, r.Readability.Issues,
	} {
		r.Issues = append(r.Issues, sub...)
	}
	return r
}

// firstSubstantiveParagraph returns the first <p> after the first h1
// (or the first <p> at all when no h1 exists) with at least 20 words.
func firstSubstantiveParagraph(page Page) string {
	var h1Seen, found bool
	var text string

	hasH1 := page.Doc.Find("h1").Length() > 0

	page.Doc.Find("h1, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if found {
			return false
		}
		if goquery.NodeName(s) == "h1" {
			h1Seen = true
			return true
		}
		if hasH1 && !h1Seen {
			return true
		}
		candidate := strings.TrimSpace(s.Text())
		if len(strings.Fields(candidate)) >= 20 {
			text = candidate
			found = true
			return false
		}
		return true
	})

	return text
}

// pageTopicTerms derives the page's topic words from its h1 or title.
func pageTopicTerms(page Page) []string {
	source := ""
	if h1s := page.Extracted.Metadata.Headings.H1; len(h1s) > 0 {
		source = h1s[0]
	} else {
		source = page.Extracted.Title
	}

	var terms []string
	for _, w := range strings.Fields(strings.ToLower(source)) {
		w = strings.Trim(w, ".,:;!?\"'()")
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

func analyzeAnswerFirst(page Page) AnswerFirstResult {
	r := AnswerFirstResult{}

	para := firstSubstantiveParagraph(page)
	if para == "" {
		r.Issues = append(r.Issues, "no substantive opening paragraph found")
		return r
	}

	r.FirstParaWords = len(strings.Fields(para))
	lower := strings.ToLower(para)

	opener := false
	for _, g := range genericOpeners {
		if strings.HasPrefix(lower, g) {
			opener = true
			break
		}
	}

	// The topic should appear in the first sentence.
	firstSentence := lower
	if idx := strings.IndexAny(lower, ".!?"); idx > 0 {
		firstSentence = lower[:idx]
	}
	for _, term := range pageTopicTerms(page) {
		if strings.Contains(firstSentence, term) {
			r.LeadsWithTopic = true
			break
		}
	}

	score := 40.0
	if r.LeadsWithTopic {
		score += 40
	} else {
		r.Issues = append(r.Issues, "opening paragraph does not lead with the page topic")
	}
	if !opener {
		score += 20
	} else {
		r.Issues = append(r.Issues, "opening paragraph starts with filler instead of the answer")
	}
	r.Score = clamp(score)
	return r
}

func analyzeAnswerBlock(page Page) AIAnswerBlockResult {
	r := AIAnswerBlockResult{}

	para := firstSubstantiveParagraph(page)
	if para == "" {
		r.Issues = append(r.Issues, "no AI answer block: no substantive paragraph after the h1")
		return r
	}
	r.Found = true
	r.Text = para
	r.Words = len(strings.Fields(para))
	lower := " " + strings.ToLower(para)

	for _, p := range definitionPatterns {
		if strings.Contains(lower, p) {
			r.HasDefinition = true
			break
		}
	}

	firstSentence := lower
	if idx := strings.IndexAny(lower, ".!?"); idx > 0 {
		firstSentence = lower[:idx]
	}
	for _, term := range pageTopicTerms(page) {
		if strings.Contains(firstSentence, term) {
			r.StartsOnTopic = true
			break
		}
	}

	score := 0.0
	switch {
	case r.Words >= answerBlockMinWords && r.Words <= answerBlockMaxWords:
		score += 40
	case r.Words >= 25 && r.Words <= 120:
		score += 20
		r.Issues = append(r.Issues, "AI answer block is outside the optimal 40-80 word window")
	default:
		r.Issues = append(r.Issues, "AI answer block length is far from the 40-80 word target")
	}
	if r.StartsOnTopic {
		score += 30
	} else {
		r.Issues = append(r.Issues, "AI answer block does not start with the topic")
	}
	if r.HasDefinition {
		score += 30
	} else {
		r.Issues = append(r.Issues, "AI answer block lacks a definition pattern (\"is a\", \"refers to\")")
	}
	r.Score = clamp(score)
	return r
}

func analyzeFAQ(page Page, heading HeadingResult) FAQResult {
	r := FAQResult{}

	r.QuestionCount = heading.QuestionHeadings
	r.HasFAQSection = heading.FAQHeadings > 0

	for _, t := range page.Extracted.Metadata.SchemaTypes {
		if t == "FAQPage" {
			r.HasFAQSchema = true
			break
		}
	}

	// Details/summary pairs are a common FAQ markup.
	if !r.HasFAQSection && page.Doc.Find("details summary").Length() >= 2 {
		r.HasFAQSection = true
	}

	score := 0.0
	if r.HasFAQSection {
		score += 40
	}
	if r.HasFAQSchema {
		score += 30
	}
	switch {
	case r.QuestionCount >= 3:
		score += 30
	case r.QuestionCount > 0:
		score += 15
	}
	if score == 0 {
		r.Issues = append(r.Issues, "no FAQ section or question headings found")
	}
	r.Score = clamp(score)
	return r
}

func analyzeFormats(page Page) FormatsResult {
	r := FormatsResult{}

	r.Lists = page.Doc.Find("ul, ol, dl").Length()
	r.Tables = page.Doc.Find("table").Length()
	r.CodeBlocks = page.Doc.Find("pre, code").Length()

	score := 30.0
	if r.Lists > 0 {
		score += 35
	} else {
		r.Issues = append(r.Issues, "no lists; enumerable facts are easier to cite")
	}
	if r.Tables > 0 {
		score += 20
	}
	if r.CodeBlocks > 0 {
		score += 15
	}
	r.Score = clamp(score)
	return r
}

func analyzeReadability(paragraphs ParagraphResult) ReadabilityResult {
	r := ReadabilityResult{}

	if paragraphs.ParagraphCount == 0 {
		r.Issues = append(r.Issues, "no paragraphs to measure readability on")
		return r
	}

	r.AvgParaSentences = paragraphs.AvgSentences
	if paragraphs.AvgSentences > 0 {
		r.AvgSentenceLen = paragraphs.AvgWords / paragraphs.AvgSentences
	}
	for _, s := range paragraphs.Stats {
		if s.Words > r.LongestParaWords {
			r.LongestParaWords = s.Words
		}
	}

	score := 100.0

	// Target 2-4 sentences per paragraph.
	if r.AvgParaSentences < 2 || r.AvgParaSentences > 4 {
		score -= 25
		r.Issues = append(r.Issues, "average paragraph is outside the 2-4 sentence target")
	}
	// Target 15-22 word sentences.
	if r.AvgSentenceLen < 15 || r.AvgSentenceLen > 22 {
		score -= 25
		if r.AvgSentenceLen > 22 {
			r.Issues = append(r.Issues, "sentences average over 22 words")
		}
	}
	// No paragraph over 150 words.
	if r.LongestParaWords > 150 {
		score -= 30
		r.Issues = append(r.Issues, "at least one paragraph exceeds 150 words")
	}

	r.Score = clamp(score)
	return r
}
