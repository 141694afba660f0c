// Package metrics provides the injected Metrics capability backed by
// prometheus collectors. The core registers counters and histograms
// into a caller-supplied registerer; the exposition endpoint lives in
// the API layer, not here.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the instrument set the pipeline records into.
type Metrics struct {
	PagesCrawled      *prometheus.CounterVec
	PagesExtracted    prometheus.Counter
	PagesSkipped      *prometheus.CounterVec
	FetchDuration     prometheus.Histogram
	AnalyzerDuration  *prometheus.HistogramVec
	ChunksIndexed     prometheus.Counter
	QuestionsSimulated *prometheus.CounterVec
	RunsCompleted     *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
}

// New registers the instrument set with reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid default-registry
// collisions; pass nil for an unregistered (no-op exposition) set.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PagesCrawled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "findable_pages_crawled_total",
			Help: "Pages fetched during crawls, by surface.",
		}, []string{"surface"}),
		PagesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "findable_pages_extracted_total",
			Help: "Pages that passed content extraction.",
		}),
		PagesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "findable_pages_skipped_total",
			Help: "Pages skipped during crawl or extraction, by reason.",
		}, []string{"reason"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "findable_fetch_duration_seconds",
			Help:    "HTTP fetch latency.",
			Buckets: prometheus.DefBuckets,
		}),
		AnalyzerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "findable_analyzer_duration_seconds",
			Help:    "Per-analyzer execution time.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		}, []string{"analyzer"}),
		ChunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "findable_chunks_indexed_total",
			Help: "Chunks embedded and upserted into the retrieval index.",
		}),
		QuestionsSimulated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "findable_questions_simulated_total",
			Help: "Simulated questions, by answerability verdict.",
		}, []string{"answerability"}),
		RunsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "findable_runs_total",
			Help: "Audit runs by terminal status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "findable_run_duration_seconds",
			Help:    "End-to-end audit run duration.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "findable_crawl_cache_hits_total",
			Help: "Crawl cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "findable_crawl_cache_misses_total",
			Help: "Crawl cache misses.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.PagesCrawled, m.PagesExtracted, m.PagesSkipped,
			m.FetchDuration, m.AnalyzerDuration, m.ChunksIndexed,
			m.QuestionsSimulated, m.RunsCompleted, m.RunDuration,
			m.CacheHits, m.CacheMisses,
		)
	}
	return m
}

// Nop returns an unregistered instrument set safe to record into.
func Nop() *Metrics {
	return New(nil)
}

// ObserveRun records a terminal run status and its duration.
func (m *Metrics) ObserveRun(status string, d time.Duration) {
	m.RunsCompleted.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
}
