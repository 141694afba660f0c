package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/findablehq/findable-cli/internal/crawl"
	"github.com/findablehq/findable-cli/internal/metrics"
)

var (
	crawlURL     string
	crawlRefresh bool
	crawlJSON    bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl a site and print the result without scoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		fetcher := crawl.NewFetcher(crawl.FetcherOptions{
			UserAgent:    cfg.Crawl.UserAgent,
			Timeout:      cfg.Crawl.Timeout(),
			MinDelay:     cfg.Crawl.MinDelay(),
			MaxRedirects: cfg.Crawl.MaxRedirects,
		})
		crawler := crawl.NewCachedCrawler(
			crawl.NewCrawler(fetcher, cfg.Crawl), st, cfg.Pipeline.CacheTTL(), metrics.Nop())

		result, fromCache, err := crawler.Crawl(ctx, crawlURL, crawl.CacheOptions{
			UseCache:     true,
			ForceRefresh: crawlRefresh,
		})
		if err != nil {
			return eris.Wrap(err, "crawl")
		}

		if crawlJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		fmt.Printf("Domain:      %s\n", result.Domain)
		fmt.Printf("Pages:       %d (%d docs, %d marketing)\n",
			len(result.Pages), result.DocsPagesCrawled, result.MarketingPagesCrawled)
		fmt.Printf("Discovered:  %d  skipped: %d  failed: %d\n",
			result.URLsDiscovered, result.URLsSkipped, result.URLsFailed)
		fmt.Printf("Max depth:   %d\n", result.MaxDepthReached)
		fmt.Printf("Duration:    %.1fs  (cache: %v)\n", result.DurationSeconds, fromCache)
		for _, p := range result.Pages {
			fmt.Printf("  [%d] %-8s %s\n", p.Depth, p.Surface, p.URL)
		}
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlURL, "url", "", "site URL to crawl (required)")
	crawlCmd.Flags().BoolVar(&crawlRefresh, "refresh", false, "invalidate any cached crawl first")
	crawlCmd.Flags().BoolVar(&crawlJSON, "json", false, "emit the raw crawl result as JSON")
	_ = crawlCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(crawlCmd)
}
