package crawl

import (
	"context"
	"net/http"
	"strings"

	"github.com/findablehq/findable-cli/internal/model"
)

// Probe checks a site's reachability before a full crawl: fetches the
// start URL and looks for robots.txt and a sitemap. Never returns an
// error; an unreachable site is a valid probe outcome.
func Probe(ctx context.Context, fetcher *Fetcher, startURL string) model.ProbeResult {
	probe := model.ProbeResult{}

	result, err := fetcher.Fetch(ctx, startURL)
	if err != nil || result == nil {
		return probe
	}
	probe.StatusCode = result.StatusCode
	probe.FinalURL = result.FinalURL
	probe.Blocked = result.Blocked
	probe.BlockType = string(result.BlockType)
	probe.Reachable = result.StatusCode >= 200 && result.StatusCode < 400 && !result.Blocked

	robots := fetcher.FetchRobots(ctx, startURL)
	probe.HasRobots = !robots.FetchFailed && robots.StatusCode == http.StatusOK

	if probe.HasRobots && len(robots.PolicyFor("*").Sitemaps) > 0 {
		probe.HasSitemap = true
	} else if u := sitemapURL(startURL); u != "" {
		_, status, err := fetcher.FetchText(ctx, u)
		probe.HasSitemap = err == nil && status == http.StatusOK
	}
	return probe
}

func sitemapURL(startURL string) string {
	i := strings.Index(startURL, "://")
	if i < 0 {
		return ""
	}
	rest := startURL[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	if rest == "" {
		return ""
	}
	return startURL[:i+3] + rest + "/sitemap.xml"
}
