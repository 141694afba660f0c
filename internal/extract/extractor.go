package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/crawl"
	"github.com/findablehq/findable-cli/internal/model"
	"github.com/findablehq/findable-cli/internal/resilience"
)

// Extractor turns crawled pages into cleaned, metadata-rich
// ExtractedPages.
type Extractor struct {
	cleaner *Cleaner
	cfg     config.ExtractConfig
}

// NewExtractor creates an Extractor with the given config.
func NewExtractor(cfg config.ExtractConfig) *Extractor {
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = 50
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = 500_000
	}
	return &Extractor{
		cleaner: NewCleaner(cfg.RemoveSelectors),
		cfg:     cfg,
	}
}

// Extract cleans one crawled page. An unparseable document is a parse
// error with no page. Main content below the configured minimum is a
// content error, but the assembled page is still returned: what little
// renders statically is exactly what a JS-shell classifier needs to
// see, even though the page is excluded from analysis.
func (e *Extractor) Extract(page model.CrawlPage) (*model.ExtractedPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, resilience.Classify(resilience.KindParse,
			eris.Wrapf(err, "extract: parse html for %s", page.URL))
	}

	domain, _ := crawl.Domain(page.URL)
	metadata := ExtractMetadata(doc, domain)

	// Clean mutates the document, so metadata runs first.
	cleaned := e.cleaner.Clean(doc)

	mainContent := cleaned.MainContent
	if len(mainContent) > e.cfg.MaxContentLength {
		mainContent = mainContent[:e.cfg.MaxContentLength]
	}

	markdown := e.renderMarkdown(cleaned.MainSelection, page.URL)

	title := page.Title
	if title == "" {
		title = metadata.Title
	}

	htmlSize := len(page.HTML)
	contentSize := len(mainContent)
	ratio := 0.0
	if htmlSize > 0 {
		ratio = float64(contentSize) / float64(htmlSize)
	}

	extracted := &model.ExtractedPage{
		URL:              page.URL,
		Title:            title,
		MainContent:      mainContent,
		FullText:         cleaned.FullText,
		Markdown:         markdown,
		Metadata:         metadata,
		WordCount:        WordCount(mainContent),
		Depth:            page.Depth,
		Surface:          page.Surface,
		FetchedAt:        page.FetchedAt,
		HTMLSize:         htmlSize,
		ContentSize:      contentSize,
		CompressionRatio: ratio,
	}

	if len(cleaned.MainContent) < e.cfg.MinContentLength {
		return extracted, resilience.Classify(resilience.KindContent,
			eris.Errorf("extract: main content of %s is %d chars, below minimum %d",
				page.URL, len(cleaned.MainContent), e.cfg.MinContentLength))
	}
	return extracted, nil
}

// renderMarkdown converts the main-content region to markdown for the
// chunker, which relies on heading lines for context tags. Conversion
// failures fall back to plain text.
func (e *Extractor) renderMarkdown(main *goquery.Selection, pageURL string) string {
	if main == nil {
		return ""
	}
	html, err := goquery.OuterHtml(main)
	if err != nil {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		zap.L().Debug("extract: markdown conversion failed, using plain text",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return CollapseWhitespace(main.Text())
	}
	return strings.TrimSpace(md)
}
