package crawl

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/findablehq/findable-cli/internal/metrics"
	"github.com/findablehq/findable-cli/internal/model"
)

// CrawlCache is the subset of the store a cached crawler needs.
type CrawlCache interface {
	GetCachedCrawl(ctx context.Context, domain string) (*model.CrawlCacheEntry, error)
	SetCachedCrawl(ctx context.Context, domain string, result *model.CrawlResult, ttl time.Duration) error
	InvalidateCrawl(ctx context.Context, domain string) error
}

// CachedCrawler serves crawl results from the cache when a fresh entry
// exists and falls back to a live crawl otherwise. A cache read failure
// degrades to a live crawl rather than failing the run.
type CachedCrawler struct {
	crawler *Crawler
	cache   CrawlCache
	ttl     time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewCachedCrawler wraps crawler with cache. A zero ttl defaults to 24h.
func NewCachedCrawler(crawler *Crawler, cache CrawlCache, ttl time.Duration, m *metrics.Metrics) *CachedCrawler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &CachedCrawler{
		crawler: crawler,
		cache:   cache,
		ttl:     ttl,
		metrics: m,
		now:     time.Now,
	}
}

// CacheOptions control cache participation for one crawl.
type CacheOptions struct {
	// UseCache enables reading and writing the cache.
	UseCache bool
	// ForceRefresh invalidates any cached entry before crawling.
	ForceRefresh bool
}

// Crawl returns the cached result for the domain when present and
// unexpired, otherwise crawls startURL and stores the result. The
// second return reports whether the result came from the cache.
func (c *CachedCrawler) Crawl(ctx context.Context, startURL string, opts CacheOptions) (*model.CrawlResult, bool, error) {
	domain, err := Domain(startURL)
	if err != nil {
		return nil, false, eris.Wrap(err, "crawl: normalize domain")
	}

	useCache := opts.UseCache && c.cache != nil
	if useCache && opts.ForceRefresh {
		if err := c.cache.InvalidateCrawl(ctx, domain); err != nil {
			zap.L().Warn("crawl cache invalidate failed",
				zap.String("domain", domain), zap.Error(err))
		}
	}

	if useCache && !opts.ForceRefresh {
		entry, err := c.cache.GetCachedCrawl(ctx, domain)
		if err != nil {
			zap.L().Warn("crawl cache read failed, crawling live",
				zap.String("domain", domain), zap.Error(err))
		} else if entry != nil {
			c.metrics.CacheHits.Inc()
			zap.L().Info("serving crawl from cache",
				zap.String("domain", domain),
				zap.Duration("age", c.now().UTC().Sub(entry.CrawledAt)),
				zap.Int("pages", len(entry.Result.Pages)))
			result := entry.Result
			return &result, true, nil
		} else {
			c.metrics.CacheMisses.Inc()
		}
	}

	result, err := c.crawler.Crawl(ctx, startURL)
	if err != nil {
		return nil, false, err
	}
	for _, page := range result.Pages {
		c.metrics.PagesCrawled.WithLabelValues(string(page.Surface)).Inc()
		c.metrics.FetchDuration.Observe(float64(page.FetchTimeMS) / 1000)
	}

	if useCache {
		if err := c.cache.SetCachedCrawl(ctx, domain, result, c.ttl); err != nil {
			zap.L().Warn("crawl cache write failed",
				zap.String("domain", domain), zap.Error(err))
		}
	}
	return result, false, nil
}

// Invalidate drops any cached crawl for the URL's domain.
func (c *CachedCrawler) Invalidate(ctx context.Context, startURL string) error {
	domain, err := Domain(startURL)
	if err != nil {
		return eris.Wrap(err, "crawl: normalize domain")
	}
	if c.cache == nil {
		return nil
	}
	return c.cache.InvalidateCrawl(ctx, domain)
}
