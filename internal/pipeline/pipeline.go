// Package pipeline orchestrates the audit phases: crawl, extract,
// analyze, index, simulate, score. Phase outcomes are persisted per
// run so a partial audit leaves an inspectable trail.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/findablehq/findable-cli/internal/analyze"
	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/crawl"
	"github.com/findablehq/findable-cli/internal/extract"
	"github.com/findablehq/findable-cli/internal/index"
	"github.com/findablehq/findable-cli/internal/metrics"
	"github.com/findablehq/findable-cli/internal/model"
	"github.com/findablehq/findable-cli/internal/resilience"
	"github.com/findablehq/findable-cli/internal/score"
	"github.com/findablehq/findable-cli/internal/simulate"
	"github.com/findablehq/findable-cli/internal/store"
)

// Pipeline runs full audits against one configured store.
type Pipeline struct {
	cfg     *config.Config
	store   store.Store
	fetcher *crawl.Fetcher
	crawler *crawl.CachedCrawler
	metrics *metrics.Metrics
}

// Option mutates a Pipeline during construction.
type Option func(*Pipeline)

// WithFetcher overrides the HTTP fetcher; the replay harness uses
// this to splice in a cassette transport.
func WithFetcher(f *crawl.Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// New wires a Pipeline from config. Pass metrics.Nop() when no
// registry is wanted.
func New(cfg *config.Config, st store.Store, m *metrics.Metrics, opts ...Option) *Pipeline {
	if m == nil {
		m = metrics.Nop()
	}
	p := &Pipeline{cfg: cfg, store: st, metrics: m}
	for _, opt := range opts {
		opt(p)
	}
	if p.fetcher == nil {
		p.fetcher = crawl.NewFetcher(crawl.FetcherOptions{
			UserAgent:    cfg.Crawl.UserAgent,
			Timeout:      cfg.Crawl.Timeout(),
			MinDelay:     cfg.Crawl.MinDelay(),
			MaxRedirects: cfg.Crawl.MaxRedirects,
		})
	}
	crawler := crawl.NewCrawler(p.fetcher, cfg.Crawl)
	p.crawler = crawl.NewCachedCrawler(crawler, st, cfg.Pipeline.CacheTTL(), m)
	return p
}

// AuditRequest describes one audit run.
type AuditRequest struct {
	URL          string
	SiteName     string
	RunType      model.RunType
	UseCache     bool
	ForceRefresh bool
}

// AuditResult is the full outcome of one audit run.
type AuditResult struct {
	Run        *model.Run
	Site       *model.Site
	Crawl      *model.CrawlResult
	Score      *model.FindableScore
	Simulation *model.SimulationResult
	Questions  []model.QuestionResult
	PagesUsed  int
	Chunks     int
	FromCache  bool
	Elapsed    time.Duration
}

// Run executes every audit phase for one site. The returned result
// carries whatever completed even when err is non-nil; only an invalid
// start URL or a failed final persistence write aborts outright.
func (p *Pipeline) Run(ctx context.Context, req AuditRequest) (*AuditResult, error) {
	start := time.Now()
	if req.RunType == "" {
		req.RunType = model.RunTypeAudit
	}

	domain, err := crawl.Domain(req.URL)
	if err != nil {
		return nil, resilience.Classify(resilience.KindInput, eris.Wrap(err, "pipeline: start url"))
	}
	log := zap.L().With(zap.String("domain", domain))
	log.Info("pipeline: starting audit", zap.String("url", req.URL))

	site := &model.Site{Domain: domain, Name: req.SiteName}
	if err := p.store.UpsertSite(ctx, site); err != nil {
		return nil, resilience.Classify(resilience.KindPersistence, eris.Wrap(err, "pipeline: upsert site"))
	}
	run, err := p.store.CreateRun(ctx, site.ID, req.RunType)
	if err != nil {
		return nil, resilience.Classify(resilience.KindPersistence, eris.Wrap(err, "pipeline: create run"))
	}
	result := &AuditResult{Run: run, Site: site}

	if d := p.cfg.Pipeline.Deadline(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: status update failed", zap.Error(statusErr))
		}
	}
	trackPhase := func(name string, fn func() error) error {
		if _, phaseErr := p.store.CreatePhase(ctx, run.ID, name); phaseErr != nil {
			log.Warn("pipeline: create phase failed", zap.String("phase", name), zap.Error(phaseErr))
		}
		phaseStart := time.Now()
		fnErr := fn()
		status, errText := "complete", ""
		if fnErr != nil {
			status, errText = "failed", fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Duration("elapsed", time.Since(phaseStart)),
				zap.Error(fnErr))
		} else {
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Duration("elapsed", time.Since(phaseStart)))
		}
		if completeErr := p.store.CompletePhase(ctx, run.ID, name, status, errText); completeErr != nil {
			log.Warn("pipeline: complete phase failed", zap.String("phase", name), zap.Error(completeErr))
		}
		return fnErr
	}

	finish := func(outcome string) {
		result.Elapsed = time.Since(start)
		p.metrics.ObserveRun(outcome, result.Elapsed)
	}
	cancelled := func(err error) bool {
		return resilience.KindOf(err) == resilience.KindCancelled || ctx.Err() != nil
	}

	// Crawl.
	setStatus(model.RunStatusCrawling)
	var crawlResult *model.CrawlResult
	var probe model.ProbeResult
	err = trackPhase("crawl", func() error {
		var crawlErr error
		crawlResult, result.FromCache, crawlErr = p.crawler.Crawl(ctx, req.URL, crawl.CacheOptions{
			UseCache:     req.UseCache,
			ForceRefresh: req.ForceRefresh,
		})
		if crawlErr != nil {
			return crawlErr
		}
		if len(crawlResult.Pages) == 0 {
			probe = crawl.Probe(ctx, p.fetcher, req.URL)
			if probe.Blocked {
				return eris.Errorf("start url is blocked (%s)", probe.BlockType)
			}
			return eris.New("crawl produced no usable pages")
		}
		return nil
	})
	result.Crawl = crawlResult
	if err != nil {
		if cancelled(err) {
			setStatus(model.RunStatusCancelled)
			finish("cancelled")
			return result, resilience.Classify(resilience.KindCancelled, err)
		}
		failErr := eris.Wrap(err, "pipeline: crawl")
		if failStoreErr := p.store.FailRun(ctx, run.ID, failErr.Error()); failStoreErr != nil {
			log.Warn("pipeline: fail run write failed", zap.Error(failStoreErr))
		}
		finish("failed")
		return result, failErr
	}

	// Extract.
	setStatus(model.RunStatusExtracting)
	var pages []analyze.Page
	var thinJS []analyze.JSDetectionResult
	_ = trackPhase("extract", func() error {
		pages, thinJS = p.extractPages(ctx, crawlResult)
		if len(pages) == 0 {
			return eris.New("no pages passed extraction")
		}
		return nil
	})
	result.PagesUsed = len(pages)

	// Analyze.
	setStatus(model.RunStatusAnalyzing)
	var siteAnalysis siteAnalysis
	_ = trackPhase("analyze", func() error {
		siteAnalysis = p.analyzeSite(ctx, crawlResult, pages, site)
		return nil
	})

	// Index.
	setStatus(model.RunStatusIndexing)
	retriever := index.NewRetriever(
		index.NewEmbedder(index.NewHashModel(p.cfg.Index.Dimensions)),
		p.cfg.Index.VectorWeight, p.cfg.Index.LexicalWeight)
	_ = trackPhase("index", func() error {
		chunker := index.NewChunker(p.cfg.Index.ChunkTargetChars, p.cfg.Index.ChunkMaxChars)
		var chunks []model.Chunk
		for _, page := range pages {
			chunks = append(chunks, chunker.Chunk(page.Extracted, page.Extracted.URL)...)
		}
		if err := retriever.Add(chunks); err != nil {
			return eris.Wrap(err, "pipeline: index chunks")
		}
		result.Chunks = retriever.Len()
		p.metrics.ChunksIndexed.Add(float64(len(chunks)))
		if err := p.store.UpsertEmbeddings(ctx, retriever.Embeddings(site.ID)); err != nil {
			log.Warn("pipeline: embedding persistence failed", zap.Error(err))
		}
		return nil
	})

	// Calibration config drives both simulation and scoring.
	calib := p.activeConfig(ctx)

	// Simulate.
	setStatus(model.RunStatusSimulating)
	var sim *model.SimulationResult
	if p.cfg.Pipeline.RunSimulation && result.Chunks > 0 {
		_ = trackPhase("simulate", func() error {
			questions := simulate.GenerateQuestions(simulate.SiteContext{
				CompanyName: siteName(site, pages),
				Domain:      domain,
				SchemaTypes: schemaTypes(pages),
				Headings:    siteHeadings(pages),
			}, p.cfg.Simulate.QuestionCount)
			runner := simulate.NewRunner(retriever, calib, p.cfg.Simulate, p.cfg.Index.TopK, p.metrics)
			var simErr error
			sim, simErr = runner.Run(ctx, questions)
			return simErr
		})
	}
	result.Simulation = sim
	if sim != nil {
		result.Questions = sim.QuestionResults
	}

	// Score.
	setStatus(model.RunStatusScoring)
	var findable model.FindableScore
	scoreErr := trackPhase("score", func() error {
		calc, calcErr := score.NewCalculator(calib)
		if calcErr != nil {
			return eris.Wrap(calcErr, "pipeline: calculator")
		}
		pillars, issues := p.scorePillars(crawlResult, siteAnalysis, thinJS, sim, probe, calib)
		findable = calc.Calculate(pillars, issues)
		return nil
	})
	if scoreErr == nil {
		result.Score = &findable
	}

	if cancelled(ctx.Err()) {
		setStatus(model.RunStatusCancelled)
		finish("cancelled")
		return result, resilience.Classify(resilience.KindCancelled, ctx.Err())
	}

	// Final write. Retried; a persistent failure marks the run failed.
	status := model.RunStatusCompleted
	if result.Score == nil || result.Score.IsPartial {
		status = model.RunStatusCompletedPartial
	}
	writeErr := resilience.Do(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
		return p.store.UpdateRunScore(ctx, run.ID, result.Score, status)
	})
	if writeErr != nil {
		if failStoreErr := p.store.FailRun(ctx, run.ID, writeErr.Error()); failStoreErr != nil {
			log.Warn("pipeline: fail run write failed", zap.Error(failStoreErr))
		}
		finish("failed")
		return result, resilience.Classify(resilience.KindPersistence, eris.Wrap(writeErr, "pipeline: final write"))
	}
	run.Status = status

	finish(string(status))
	if result.Score != nil {
		log.Info("pipeline: audit complete",
			zap.Float64("score", result.Score.TotalScore),
			zap.String("grade", string(result.Score.Grade)),
			zap.String("status", string(status)),
			zap.Duration("elapsed", result.Elapsed))
	}
	return result, nil
}

// extractPages runs content extraction over crawled pages with a
// bounded worker pool. Pages failing extraction are skipped, not
// fatal. Pages rejected for thin content are returned separately as
// JS classifications: a page that renders almost nothing without
// JavaScript is the shell signal the technical pillar must see.
func (p *Pipeline) extractPages(ctx context.Context, crawlResult *model.CrawlResult) ([]analyze.Page, []analyze.JSDetectionResult) {
	extractor := extract.NewExtractor(p.cfg.Extract)
	concurrency := p.cfg.Pipeline.ConcurrentExtractions
	if concurrency <= 0 {
		concurrency = 4
	}

	extracted := make([]*model.ExtractedPage, len(crawlResult.Pages))
	thin := make([]*model.ExtractedPage, len(crawlResult.Pages))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, page := range crawlResult.Pages {
		g.Go(func() error {
			ep, err := extractor.Extract(page)
			if err != nil {
				p.metrics.PagesSkipped.WithLabelValues(string(resilience.KindOf(err))).Inc()
				zap.L().Debug("pipeline: page skipped",
					zap.String("url", page.URL), zap.Error(err))
				if ep != nil {
					thin[i] = ep
				}
				return nil
			}
			extracted[i] = ep
			p.metrics.PagesExtracted.Inc()
			return nil
		})
	}
	_ = g.Wait()

	var pages []analyze.Page
	var thinJS []analyze.JSDetectionResult
	for i, ep := range extracted {
		switch {
		case ep != nil:
			pages = append(pages, analyze.NewPage(crawlResult.Pages[i], ep))
		case thin[i] != nil:
			thinJS = append(thinJS, analyze.DetectJS(analyze.NewPage(crawlResult.Pages[i], thin[i])))
		}
	}
	return pages, thinJS
}

// siteAnalysis bundles the site-level analyzer outputs alongside the
// per-page results.
type siteAnalysis struct {
	PageResults []analyze.PageAnalysis
	RobotsAI    analyze.RobotsAIResult
	TTFB        analyze.TTFBResult
	LlmsTxt     analyze.LlmsTxtResult
	Clusters    analyze.TopicClusterResult
	Entity      analyze.EntityResult
}

func (p *Pipeline) analyzeSite(ctx context.Context, crawlResult *model.CrawlResult, pages []analyze.Page, site *model.Site) siteAnalysis {
	analyzer := analyze.New(p.cfg.Analyze, p.metrics)
	sa := siteAnalysis{PageResults: analyzer.AnalyzePages(ctx, pages)}

	robots := p.fetcher.FetchRobots(ctx, crawlResult.StartURL)
	sa.RobotsAI = analyze.AnalyzeRobotsAI(robots)
	sa.TTFB = analyze.MeasureTTFB(ctx, p.fetcher, crawlResult.StartURL)
	sa.LlmsTxt = analyze.AnalyzeLlmsTxt(ctx, p.fetcher, crawlResult.StartURL)
	sa.Clusters = analyze.AnalyzeTopicClusters(pages,
		analyze.BuildLinkGraph(pages, crawlResult.Domain), p.cfg.Analyze.ThinContentWords)
	sa.Entity = analyze.AnalyzeEntity(pages, siteName(site, pages))
	return sa
}

// scorePillars assembles the pillar list the calculator consumes.
// Pillars toggled off by config still appear, marked not evaluated, so
// the partial math stays honest.
func (p *Pipeline) scorePillars(crawlResult *model.CrawlResult, sa siteAnalysis, thinJS []analyze.JSDetectionResult, sim *model.SimulationResult, probe model.ProbeResult, calib model.CalibrationConfig) ([]model.PillarScore, []model.Issue) {
	weights := calib.Weights
	var pillars []model.PillarScore
	var issues []model.Issue

	if p.cfg.Pipeline.RunTechnical {
		ps, is := score.ScoreTechnical(score.TechnicalInputs{
			RobotsAI:     sa.RobotsAI,
			TTFB:         sa.TTFB,
			LlmsTxt:      sa.LlmsTxt,
			JS:           worstJS(sa.PageResults, thinJS),
			HTTPS:        strings.HasPrefix(crawlResult.StartURL, "https://"),
			StartBlocked: probe.Blocked,
			BlockType:    probe.BlockType,
		}, weights.For(model.PillarTechnical))
		pillars, issues = append(pillars, ps), append(issues, is...)
	} else {
		pillars = append(pillars, score.NotEvaluated(model.PillarTechnical,
			weights.For(model.PillarTechnical), "technical checks disabled for this run"))
	}

	if p.cfg.Pipeline.RunStructure {
		ps, is := score.ScoreStructure(sa.PageResults, weights.For(model.PillarStructure))
		pillars, issues = append(pillars, ps), append(issues, is...)
	} else {
		pillars = append(pillars, score.NotEvaluated(model.PillarStructure,
			weights.For(model.PillarStructure), "structure checks disabled for this run"))
	}

	if p.cfg.Pipeline.RunSchema {
		ps, is := score.ScoreSchema(sa.PageResults, weights.For(model.PillarSchema))
		pillars, issues = append(pillars, ps), append(issues, is...)
	} else {
		pillars = append(pillars, score.NotEvaluated(model.PillarSchema,
			weights.For(model.PillarSchema), "schema checks disabled for this run"))
	}

	if p.cfg.Pipeline.RunAuthority {
		ps, is := score.ScoreAuthority(sa.PageResults, weights.For(model.PillarAuthority))
		pillars, issues = append(pillars, ps), append(issues, is...)
	} else {
		pillars = append(pillars, score.NotEvaluated(model.PillarAuthority,
			weights.For(model.PillarAuthority), "authority checks disabled for this run"))
	}

	if sim != nil {
		ps, is := score.ScoreRetrieval(sim, weights.For(model.PillarRetrieval))
		pillars, issues = append(pillars, ps), append(issues, is...)
		cs, cis := score.ScoreCoverage(sim, sa.Clusters, weights.For(model.PillarCoverage))
		pillars, issues = append(pillars, cs), append(issues, cis...)
	} else {
		pillars = append(pillars,
			score.NotEvaluated(model.PillarRetrieval,
				weights.For(model.PillarRetrieval), "simulation did not run"),
			score.NotEvaluated(model.PillarCoverage,
				weights.For(model.PillarCoverage), "simulation did not run"))
	}

	if w := weights.For(model.PillarEntity); w > 0 {
		ps, is := score.ScoreEntity(sa.Entity, w)
		pillars, issues = append(pillars, ps), append(issues, is...)
	}

	return pillars, issues
}

func (p *Pipeline) activeConfig(ctx context.Context) model.CalibrationConfig {
	cfg, err := p.store.GetActiveConfig(ctx)
	if err != nil {
		zap.L().Warn("pipeline: active config lookup failed, using defaults", zap.Error(err))
		return model.DefaultCalibrationConfig()
	}
	if cfg == nil {
		return model.DefaultCalibrationConfig()
	}
	return *cfg
}

// worstJS picks the most damaging JS classification across analyzed
// pages and thin pages the extractor rejected. An empty shell anywhere
// outranks any score. With nothing to inspect the site gets a zero,
// not a pass.
func worstJS(results []analyze.PageAnalysis, thin []analyze.JSDetectionResult) analyze.JSDetectionResult {
	all := make([]analyze.JSDetectionResult, 0, len(results)+len(thin))
	for _, r := range results {
		all = append(all, r.JS)
	}
	all = append(all, thin...)
	if len(all) == 0 {
		return analyze.JSDetectionResult{
			Level:    model.LevelLimited,
			Severity: analyze.JSSeverityWarning,
			Issues:   []string{"no page content was extracted; JavaScript dependence could not be assessed"},
		}
	}
	worst := all[0]
	for _, r := range all[1:] {
		if r.IsEmptyShell && !worst.IsEmptyShell {
			worst = r
			continue
		}
		if r.Score < worst.Score && r.IsEmptyShell == worst.IsEmptyShell {
			worst = r
		}
	}
	return worst
}

func siteName(site *model.Site, pages []analyze.Page) string {
	if site.Name != "" {
		return site.Name
	}
	for _, p := range pages {
		if p.Extracted != nil && p.Extracted.Metadata.OGSiteName != "" {
			return p.Extracted.Metadata.OGSiteName
		}
	}
	return ""
}

func schemaTypes(pages []analyze.Page) []string {
	seen := make(map[string]bool)
	var types []string
	for _, p := range pages {
		if p.Extracted == nil {
			continue
		}
		for _, t := range p.Extracted.Metadata.SchemaTypes {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	return types
}

func siteHeadings(pages []analyze.Page) []string {
	var headings []string
	for _, p := range pages {
		if p.Extracted == nil {
			continue
		}
		headings = append(headings, p.Extracted.Metadata.Headings.H2...)
		headings = append(headings, p.Extracted.Metadata.Headings.H3...)
	}
	return headings
}

