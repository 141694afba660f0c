package model

import "time"

// Surface is the editorial classification of a crawled page.
type Surface string

const (
	SurfaceDocs      Surface = "docs"
	SurfaceMarketing Surface = "marketing"
)

// CrawlPage represents a single page fetched during a crawl.
type CrawlPage struct {
	URL         string    `json:"url"`
	FinalURL    string    `json:"final_url"`
	Title       string    `json:"title,omitempty"`
	HTML        string    `json:"html"`
	ContentType string    `json:"content_type,omitempty"`
	StatusCode  int       `json:"status_code"`
	Depth       int       `json:"depth"`
	FetchTimeMS int64     `json:"fetch_time_ms"`
	FetchedAt   time.Time `json:"fetched_at"`
	LinksFound  int       `json:"links_found"`
	Surface     Surface   `json:"surface"`
}

// CrawlResult holds the full outcome of a BFS crawl over one domain.
// Pages are in dequeue order: start URL, priority paths and sitemap
// seeds at depth 0, then discovered links breadth-first.
type CrawlResult struct {
	Domain               string      `json:"domain"`
	StartURL             string      `json:"start_url"`
	Pages                []CrawlPage `json:"pages"`
	URLsDiscovered       int         `json:"urls_discovered"`
	URLsCrawled          int         `json:"urls_crawled"`
	URLsSkipped          int         `json:"urls_skipped"`
	URLsFailed           int         `json:"urls_failed"`
	StartedAt            time.Time   `json:"started_at"`
	CompletedAt          time.Time   `json:"completed_at"`
	DurationSeconds      float64     `json:"duration_seconds"`
	RobotsRespected      bool        `json:"robots_respected"`
	MaxDepthReached      int         `json:"max_depth_reached"`
	DocsPagesCrawled     int         `json:"docs_pages_crawled"`
	MarketingPagesCrawled int        `json:"marketing_pages_crawled"`
	DocsSurfaceDetected  bool        `json:"docs_surface_detected"`
}

// PageByURL returns the crawled page with the given normalized URL, if any.
func (r *CrawlResult) PageByURL(url string) (CrawlPage, bool) {
	for _, p := range r.Pages {
		if p.URL == url {
			return p, true
		}
	}
	return CrawlPage{}, false
}

// CrawlCacheEntry stores a cached crawl result with its expiry.
type CrawlCacheEntry struct {
	ID        string      `json:"id"`
	Domain    string      `json:"domain"`
	Result    CrawlResult `json:"result"`
	CrawledAt time.Time   `json:"crawled_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *CrawlCacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// FetchFailure classifies why a fetch did not yield a usable page.
type FetchFailure string

const (
	FetchFailureNone    FetchFailure = ""
	FetchFailureTimeout FetchFailure = "timeout"
	FetchFailureConnect FetchFailure = "connect_error"
	FetchFailureStatus  FetchFailure = "status_error"
	FetchFailureParse   FetchFailure = "parse_error"
)

// ProbeResult holds the outcome of a lightweight reachability probe.
type ProbeResult struct {
	Reachable  bool   `json:"reachable"`
	StatusCode int    `json:"status_code"`
	HasRobots  bool   `json:"has_robots"`
	HasSitemap bool   `json:"has_sitemap"`
	Blocked    bool   `json:"blocked"`
	BlockType  string `json:"block_type,omitempty"`
	FinalURL   string `json:"final_url"`
}
