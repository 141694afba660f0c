// Package analyze implements the per-page and per-site signal
// analyzers behind the pillar scores. Analyzers never return errors:
// malformed input degrades to a neutral sub-score with an issue entry.
package analyze

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/metrics"
	"github.com/findablehq/findable-cli/internal/model"
)

// Page bundles one page's extracted content with its original DOM.
// Link and structure analysis need the pre-clean DOM to tell nav
// chrome from main content.
type Page struct {
	Extracted *model.ExtractedPage
	Doc       *goquery.Document
}

// NewPage parses the crawled HTML alongside its extraction. A parse
// failure yields a Page with a nil Doc; analyzers treat that as an
// empty document and report an issue.
func NewPage(crawled model.CrawlPage, extracted *model.ExtractedPage) Page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(crawled.HTML))
	if err != nil {
		doc = nil
	}
	return Page{Extracted: extracted, Doc: doc}
}

// PageAnalysis holds every page-level analyzer output for one page.
type PageAnalysis struct {
	URL       string           `json:"url"`
	Heading   HeadingResult    `json:"heading"`
	Links     LinkResult       `json:"links"`
	Paragraph ParagraphResult  `json:"paragraph"`
	Structure StructureResult  `json:"structure"`
	Schema    SchemaResult     `json:"schema"`
	Authority AuthorityResult  `json:"authority"`
	JS        JSDetectionResult `json:"js"`
}

// Analyzer runs the page-level analyzers over a set of pages with a
// bounded worker pool.
type Analyzer struct {
	cfg     config.AnalyzeConfig
	metrics *metrics.Metrics
}

// New creates an Analyzer. A zero concurrency means GOMAXPROCS.
func New(cfg config.AnalyzeConfig, m *metrics.Metrics) *Analyzer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Analyzer{cfg: cfg, metrics: m}
}

// AnalyzePages runs every page-level analyzer over each page in
// parallel. Output order matches input order regardless of
// scheduling. Cancellation returns the pages analyzed so far.
func (a *Analyzer) AnalyzePages(ctx context.Context, pages []Page) []PageAnalysis {
	results := make([]PageAnalysis, len(pages))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)

	for i, page := range pages {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = a.analyzePage(page)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *Analyzer) analyzePage(page Page) PageAnalysis {
	analysis := PageAnalysis{URL: page.Extracted.URL}

	timed := func(name string, fn func()) {
		start := time.Now()
		fn()
		a.metrics.AnalyzerDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}

	timed("heading", func() { analysis.Heading = AnalyzeHeadings(page) })
	timed("links", func() { analysis.Links = AnalyzeLinks(page, a.cfg) })
	timed("paragraph", func() { analysis.Paragraph = AnalyzeParagraphs(page) })
	timed("schema", func() { analysis.Schema = AnalyzeSchema(page) })
	timed("authority", func() { analysis.Authority = AnalyzeAuthority(page) })
	timed("js", func() { analysis.JS = DetectJS(page) })

	// Structure composes the heading and link results; it runs last.
	timed("structure", func() {
		analysis.Structure = AnalyzeStructure(page, analysis.Heading, analysis.Links, analysis.Paragraph)
	})

	zap.L().Debug("page analyzed",
		zap.String("url", analysis.URL),
		zap.Float64("structure", analysis.Structure.Score),
		zap.Float64("schema", analysis.Schema.Score),
	)

	return analysis
}

// clamp bounds a score to [0,100].
func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// clamp01 bounds a ratio to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
