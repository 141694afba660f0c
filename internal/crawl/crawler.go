package crawl

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/model"
	"github.com/findablehq/findable-cli/internal/resilience"
)

// sitemapSeedCap bounds sitemap seeding at min(100, 2*max_pages).
const sitemapSeedCap = 100

// Crawler walks one site breadth-first, honoring robots.txt and a
// per-host crawl delay, and emits pages in dequeue order.
type Crawler struct {
	fetcher  *Fetcher
	sitemaps *SitemapFetcher
	exclude  *ExcludeList
	cfg      config.CrawlConfig
	now      func() time.Time
}

// NewCrawler creates a Crawler over the given fetcher.
func NewCrawler(fetcher *Fetcher, cfg config.CrawlConfig) *Crawler {
	maxURLs := 2 * cfg.MaxPages
	if maxURLs > sitemapSeedCap {
		maxURLs = sitemapSeedCap
	}
	return &Crawler{
		fetcher:  fetcher,
		sitemaps: NewSitemapFetcher(fetcher, cfg.MaxSitemaps, maxURLs),
		exclude:  NewExcludeList(cfg.ExcludePaths),
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetClock overrides the crawler's time source for deterministic runs.
func (c *Crawler) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Robots fetches and parses the robots policy the crawler would apply
// to the given site, exposed for the technical analyzers.
func (c *Crawler) Robots(ctx context.Context, siteURL string) (*RobotsFile, *RobotsPolicy) {
	file := c.fetcher.FetchRobots(ctx, siteURL)
	return file, file.PolicyFor(agentToken(c.cfg.UserAgent))
}

type frontierItem struct {
	url   string
	depth int
}

type pageOutcome struct {
	item    frontierItem
	fetch   *FetchResult
	title   string
	links   []string
	fetchAt time.Time
	err     error
}

// Crawl performs a BFS crawl from startURL. The frontier is seeded with
// the normalized start URL, the configured priority paths, and sitemap
// URLs, all at depth 0. Pages appear in the result in dequeue order.
// Cancellation returns the partial result with a cancelled error.
func (c *Crawler) Crawl(ctx context.Context, startURL string) (*model.CrawlResult, error) {
	normalized, ok := Normalize(startURL)
	if !ok {
		return nil, resilience.Classify(resilience.KindInput,
			eris.Errorf("crawl: invalid start url %q", startURL))
	}

	domain, err := Domain(normalized)
	if err != nil || domain == "" {
		return nil, resilience.Classify(resilience.KindInput,
			eris.Errorf("crawl: cannot derive domain from %q", startURL))
	}

	base, err := url.Parse(normalized)
	if err != nil {
		return nil, resilience.Classify(resilience.KindInput, eris.Wrap(err, "crawl: parse start url"))
	}

	result := &model.CrawlResult{
		Domain:          domain,
		StartURL:        normalized,
		StartedAt:       c.now(),
		RobotsRespected: c.cfg.RespectRobots,
	}

	policy := &RobotsPolicy{Agent: agentToken(c.cfg.UserAgent)}
	if c.cfg.RespectRobots {
		_, policy = c.Robots(ctx, normalized)
		if policy.CrawlDelay > 0 {
			c.fetcher.SetHostDelay(base.Host, policy.CrawlDelay)
		}
	}

	seen := make(map[string]bool)
	var queue []frontierItem

	enqueue := func(u string, depth int) {
		if seen[u] {
			return
		}
		seen[u] = true
		queue = append(queue, frontierItem{url: u, depth: depth})
		result.URLsDiscovered++
	}

	// Seed 1: the start URL.
	enqueue(normalized, 0)

	// Seed 2: priority paths, depth 0.
	for _, p := range c.cfg.PriorityPaths {
		candidate, ok := Normalize("https://" + base.Host + p)
		if !ok || !IsInternal(candidate, domain) || c.exclude.Excluded(candidate) {
			continue
		}
		enqueue(candidate, 0)
	}

	// Seed 3: sitemap URLs, depth 0, by priority.
	c.seedFromSitemaps(ctx, policy, base, domain, enqueue)

	concurrency := c.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	var cancelled bool

crawlLoop:
	for len(queue) > 0 && len(result.Pages) < c.cfg.MaxPages {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		// Drain a bounded batch, applying depth and robots gates at
		// dequeue time.
		var batch []frontierItem
		for len(batch) < concurrency && len(queue) > 0 && len(result.Pages)+len(batch) < c.cfg.MaxPages {
			item := queue[0]
			queue = queue[1:]

			if item.depth > c.cfg.MaxDepth {
				result.URLsSkipped++
				continue
			}
			if c.cfg.RespectRobots && !policy.IsAllowed(pathOf(item.url)) {
				result.URLsSkipped++
				continue
			}
			batch = append(batch, item)
		}
		if len(batch) == 0 {
			continue
		}

		// Fresh errgroup per batch; outcomes indexed by batch position
		// to preserve dequeue order.
		outcomes := make([]*pageOutcome, len(batch))
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for i, item := range batch {
			g.Go(func() error {
				outcomes[i] = c.fetchPage(gCtx, item)
				return nil
			})
		}
		_ = g.Wait()

		for _, out := range outcomes {
			if out == nil {
				continue
			}
			if out.err != nil {
				if resilience.KindOf(out.err) == resilience.KindCancelled {
					cancelled = true
					break crawlLoop
				}
				result.URLsFailed++
				continue
			}
			if out.fetch.Failure != model.FetchFailureNone {
				result.URLsFailed++
				continue
			}
			if !out.fetch.Success() {
				result.URLsSkipped++
				continue
			}

			page := model.CrawlPage{
				URL:         out.item.url,
				FinalURL:    out.fetch.FinalURL,
				Title:       out.title,
				HTML:        string(out.fetch.Body),
				ContentType: out.fetch.ContentType,
				StatusCode:  out.fetch.StatusCode,
				Depth:       out.item.depth,
				FetchTimeMS: out.fetch.FetchTime.Milliseconds(),
				FetchedAt:   out.fetchAt,
				LinksFound:  len(out.links),
				Surface:     ClassifySurface(out.item.url),
			}
			result.Pages = append(result.Pages, page)

			if page.Surface == model.SurfaceDocs {
				result.DocsPagesCrawled++
			} else {
				result.MarketingPagesCrawled++
			}
			if page.Depth > result.MaxDepthReached {
				result.MaxDepthReached = page.Depth
			}

			if len(result.Pages) >= c.cfg.MaxPages {
				break
			}

			for _, link := range out.links {
				if seen[link] {
					continue
				}
				if !c.cfg.FollowExternalLinks && !IsInternal(link, domain) {
					continue
				}
				if c.exclude.Excluded(link) {
					continue
				}
				enqueue(link, out.item.depth+1)
			}
		}
	}

	result.URLsCrawled = len(result.Pages)
	result.CompletedAt = c.now()
	result.DurationSeconds = result.CompletedAt.Sub(result.StartedAt).Seconds()
	result.DocsSurfaceDetected = result.DocsPagesCrawled > 0

	zap.L().Info("crawl complete",
		zap.String("domain", domain),
		zap.Int("pages", len(result.Pages)),
		zap.Int("discovered", result.URLsDiscovered),
		zap.Int("skipped", result.URLsSkipped),
		zap.Int("failed", result.URLsFailed),
		zap.Int("max_depth", result.MaxDepthReached),
		zap.Bool("docs_surface", result.DocsSurfaceDetected),
	)

	if cancelled {
		return result, resilience.Classify(resilience.KindCancelled,
			eris.Errorf("crawl: cancelled after %d pages", len(result.Pages)))
	}
	if len(result.Pages) == 0 {
		return result, resilience.Classify(resilience.KindNetwork,
			eris.Errorf("crawl: no pages fetched from %s", normalized))
	}
	return result, nil
}

// seedFromSitemaps enqueues robots-listed sitemap URLs (falling back to
// /sitemap.xml) at depth 0, highest priority first, capped at
// min(100, 2*max_pages).
func (c *Crawler) seedFromSitemaps(ctx context.Context, policy *RobotsPolicy, base *url.URL, domain string, enqueue func(string, int)) {
	sitemapURLs := policy.Sitemaps
	if len(sitemapURLs) == 0 {
		sitemapURLs = []string{base.Scheme + "://" + base.Host + "/sitemap.xml"}
	}

	cap := 2 * c.cfg.MaxPages
	if cap > sitemapSeedCap {
		cap = sitemapSeedCap
	}

	entries := c.sitemaps.Fetch(ctx, sitemapURLs)
	seeded := 0
	for _, entry := range entries {
		if seeded >= cap {
			break
		}
		candidate, ok := Normalize(entry.Loc)
		if !ok || !IsInternal(candidate, domain) || c.exclude.Excluded(candidate) {
			continue
		}
		enqueue(candidate, 0)
		seeded++
	}

	if seeded > 0 {
		zap.L().Debug("seeded urls from sitemaps",
			zap.Int("count", seeded),
			zap.Strings("sitemaps", sitemapURLs),
		)
	}
}

// fetchPage fetches one frontier item and extracts its title and
// normalized candidate links.
func (c *Crawler) fetchPage(ctx context.Context, item frontierItem) *pageOutcome {
	out := &pageOutcome{item: item, fetchAt: c.now()}

	fetch, err := c.fetcher.Fetch(ctx, item.url)
	if err != nil {
		out.err = err
		return out
	}
	out.fetch = fetch

	if !fetch.Success() {
		return out
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(fetch.Body))
	if err != nil {
		fetch.Failure = model.FetchFailureParse
		return out
	}

	out.title = strings.TrimSpace(doc.Find("title").First().Text())

	finalURL, err := url.Parse(fetch.FinalURL)
	if err != nil {
		finalURL = nil
	}

	linkSeen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		normalized, ok := NormalizeRef(href, finalURL)
		if !ok || linkSeen[normalized] {
			return
		}
		linkSeen[normalized] = true
		out.links = append(out.links, normalized)
	})

	return out
}

// pathOf returns the URL path component used for robots matching,
// including the query string.
func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}

// agentToken extracts the product token from a User-Agent string:
// "FindableBot/1.0 (+https://...)" yields "FindableBot".
func agentToken(userAgent string) string {
	token := userAgent
	if idx := strings.IndexAny(token, "/ ("); idx > 0 {
		token = token[:idx]
	}
	if token == "" {
		return "FindableBot"
	}
	return token
}
