package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findablehq/findable-cli/internal/analyze"
	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/crawl"
	"github.com/findablehq/findable-cli/internal/model"
	"github.com/findablehq/findable-cli/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Crawl: config.CrawlConfig{
			MaxPages:      10,
			MaxDepth:      2,
			RespectRobots: true,
			Concurrency:   2,
			UserAgent:     "FindableBot/1.0 (+https://findable.ai/bot)",
			TimeoutSecs:   5,
		},
		Extract: config.ExtractConfig{
			MinContentLength: 50,
			MaxContentLength: 500_000,
			RemoveSelectors:  []string{"script", "style", "nav", "header", "footer"},
		},
		Analyze: config.AnalyzeConfig{Concurrency: 2},
		Index: config.IndexConfig{
			ChunkTargetChars: 800,
			ChunkMaxChars:    1600,
			Dimensions:       128,
			TopK:             5,
			VectorWeight:     0.65,
			LexicalWeight:    0.35,
		},
		Simulate: config.SimulateConfig{QuestionCount: 8, Concurrency: 2, RelevanceFloor: 0.2},
		Pipeline: config.PipelineConfig{
			CacheTTLHours:         1,
			RunTechnical:          true,
			RunStructure:          true,
			RunSchema:             true,
			RunAuthority:          true,
			RunSimulation:         true,
			ConcurrentExtractions: 2,
		},
	}
}

// newTestPipeline wires a pipeline against a TLS test site and an
// in-memory store.
func newTestPipeline(t *testing.T, handler http.Handler) (*Pipeline, *httptest.Server, store.Store) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	fetcher := crawl.NewFetcher(crawl.FetcherOptions{
		UserAgent: "FindableBot/1.0 (+https://findable.ai/bot)",
		Timeout:   5 * time.Second,
		MinDelay:  1 * time.Millisecond,
		Transport: srv.Client().Transport,
	})
	st := store.NewMemory()
	p := New(testConfig(), st, nil, WithFetcher(fetcher))
	return p, srv, st
}

func contentPage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><head><title>%s</title>
<script type="application/ld+json">{"@type": "Organization", "name": "Acme"}</script>
</head><body><h1>%s</h1>%s</body></html>`, title, title, body)
}

func auditSite() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nAllow: /\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		contentPage(w, "Acme Fleet Telemetry", `
<p>Acme fleet telemetry is a system that streams vehicle location, speed, and
diagnostics into one dashboard so dispatchers can plan better routes, cut fuel
spend, and keep every vehicle accounted for through the day.</p>
<a href="/pricing">Pricing plans</a> <a href="/about">About Acme</a>`)
	})
	mux.HandleFunc("/pricing", func(w http.ResponseWriter, r *http.Request) {
		contentPage(w, "Pricing", `
<p>Acme pricing starts at nine dollars per vehicle per month with no setup fee.
Annual plans include hardware replacement and priority support for every fleet
size we serve, from five vehicles to five thousand.</p>
<a href="/">Home</a>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		contentPage(w, "About", `
<p>Acme was founded in 2019 by two dispatchers who were tired of guessing where
their trucks were. Today Acme tracks over forty thousand vehicles across twelve
countries and keeps growing every quarter.</p>
<a href="/">Home</a>`)
	})
	return mux
}

func TestPipeline_Run_FullAudit(t *testing.T) {
	p, srv, st := newTestPipeline(t, auditSite())

	result, err := p.Run(context.Background(), AuditRequest{URL: srv.URL, SiteName: "Acme"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.RunStatusCompleted, result.Run.Status)
	require.NotNil(t, result.Score)
	assert.False(t, result.Score.IsPartial)
	assert.Greater(t, result.Score.TotalScore, 0.0)
	assert.LessOrEqual(t, result.Score.TotalScore, 100.0)
	assert.Equal(t, 6, result.Score.PillarsEvaluated)

	assert.Equal(t, 3, result.PagesUsed)
	assert.Greater(t, result.Chunks, 0)
	require.NotNil(t, result.Simulation)
	assert.NotEmpty(t, result.Questions)
	assert.False(t, result.FromCache)

	// The run and its score are persisted.
	saved, err := st.GetRun(context.Background(), result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, saved.Status)
	require.NotNil(t, saved.Score)
	assert.Equal(t, result.Score.TotalScore, saved.Score.TotalScore)
}

// shellSite serves two content pages plus a client-rendered page that
// ships almost no static HTML.
func shellSite() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nAllow: /\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		contentPage(w, "Acme Fleet Telemetry", `
<p>Acme fleet telemetry is a system that streams vehicle location, speed, and
diagnostics into one dashboard so dispatchers can plan better routes, cut fuel
spend, and keep every vehicle accounted for through the day.</p>
<a href="/pricing">Pricing plans</a> <a href="/app">Open the app</a>`)
	})
	mux.HandleFunc("/pricing", func(w http.ResponseWriter, r *http.Request) {
		contentPage(w, "Pricing", `
<p>Acme pricing starts at nine dollars per vehicle per month with no setup fee.
Annual plans include hardware replacement and priority support for every fleet
size we serve, from five vehicles to five thousand.</p>
<a href="/">Home</a>`)
	})
	mux.HandleFunc("/app", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>App</title><script src="/static/bundle.js"></script></head>
<body><div id="__next"></div></body></html>`)
	})
	return mux
}

func TestPipeline_Run_EmptyShellPageLimitsTechnicalPillar(t *testing.T) {
	p, srv, _ := newTestPipeline(t, shellSite())

	result, err := p.Run(context.Background(), AuditRequest{URL: srv.URL, SiteName: "Acme"})
	require.NoError(t, err)
	require.NotNil(t, result.Score)

	// The shell page is rejected by extraction but must still drag the
	// technical pillar down to limited.
	assert.Equal(t, 2, result.PagesUsed)

	var tech *model.PillarScore
	for i := range result.Score.Pillars {
		if result.Score.Pillars[i].Name == model.PillarTechnical {
			tech = &result.Score.Pillars[i]
		}
	}
	require.NotNil(t, tech)
	assert.Equal(t, model.LevelLimited, tech.Level)

	var jsScore float64 = -1
	for _, c := range tech.Components {
		if c.Name == "js_accessibility" {
			jsScore = c.RawScore
		}
	}
	assert.Zero(t, jsScore)

	found := false
	for _, is := range result.Score.CriticalIssues {
		if strings.Contains(is.Message, "empty shell") {
			found = true
		}
	}
	assert.True(t, found, "expected an empty-shell critical issue, got %v", result.Score.CriticalIssues)
}

func TestWorstJS_ThinPageShellOutranksAnalyzedPages(t *testing.T) {
	analyzed := []analyze.PageAnalysis{
		{JS: analyze.JSDetectionResult{Score: 80}},
		{JS: analyze.JSDetectionResult{Score: 45}},
	}
	thin := []analyze.JSDetectionResult{
		{Score: 0, IsEmptyShell: true, Severity: analyze.JSSeverityBlocking},
	}

	worst := worstJS(analyzed, thin)
	assert.True(t, worst.IsEmptyShell)
	assert.Equal(t, analyze.JSSeverityBlocking, worst.Severity)
}

func TestWorstJS_NothingExtractedIsNotAPass(t *testing.T) {
	worst := worstJS(nil, nil)
	assert.Zero(t, worst.Score)
	assert.Equal(t, model.LevelLimited, worst.Level)
	assert.NotEmpty(t, worst.Issues)
}

func TestPipeline_Run_InvalidStartURL(t *testing.T) {
	p, _, _ := newTestPipeline(t, http.NotFoundHandler())

	result, err := p.Run(context.Background(), AuditRequest{URL: "://bad"})
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestPipeline_Run_EmptyCrawlFailsRun(t *testing.T) {
	p, srv, st := newTestPipeline(t, http.NotFoundHandler())

	result, err := p.Run(context.Background(), AuditRequest{URL: srv.URL})
	require.Error(t, err)
	require.NotNil(t, result)
	require.NotNil(t, result.Run)

	saved, getErr := st.GetRun(context.Background(), result.Run.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.RunStatusFailed, saved.Status)
	assert.NotEmpty(t, saved.Error)
}

func TestPipeline_Run_SecondAuditServedFromCache(t *testing.T) {
	p, srv, _ := newTestPipeline(t, auditSite())

	first, err := p.Run(context.Background(), AuditRequest{URL: srv.URL, SiteName: "Acme", UseCache: true})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := p.Run(context.Background(), AuditRequest{URL: srv.URL, SiteName: "Acme", UseCache: true})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, len(first.Crawl.Pages), len(second.Crawl.Pages))
}

func TestPipeline_RunBatch_OneFailureDoesNotStopOthers(t *testing.T) {
	p, srv, _ := newTestPipeline(t, auditSite())

	urls := []string{srv.URL, "://bad"}
	batch, err := p.RunBatch(context.Background(), urls, 2, AuditRequest{SiteName: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, 1, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
	require.Len(t, batch.Items, 2)
	assert.Equal(t, srv.URL, batch.Items[0].URL)
	assert.NoError(t, batch.Items[0].Err)
	assert.Error(t, batch.Items[1].Err)
}
