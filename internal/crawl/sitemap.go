package crawl

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// SitemapEntry is one <url> record from a urlset.
type SitemapEntry struct {
	Loc        string  `json:"loc"`
	LastMod    string  `json:"lastmod,omitempty"`
	ChangeFreq string  `json:"changefreq,omitempty"`
	Priority   float64 `json:"priority"`
}

// defaultSitemapPriority is assumed when a <url> has no <priority>.
const defaultSitemapPriority = 0.5

type sitemapIndexXML struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlsetXML struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc        string `xml:"loc"`
		LastMod    string `xml:"lastmod"`
		ChangeFreq string `xml:"changefreq"`
		Priority   string `xml:"priority"`
	} `xml:"url"`
}

// SitemapFetcher fetches and parses sitemaps, following sitemap-index
// recursion up to a bound.
type SitemapFetcher struct {
	fetcher     *Fetcher
	maxSitemaps int
	maxURLs     int
}

// NewSitemapFetcher wraps a Fetcher with sitemap parsing. maxSitemaps
// bounds how many sitemap documents are fetched in total (index
// recursion included); maxURLs caps the entries returned.
func NewSitemapFetcher(fetcher *Fetcher, maxSitemaps, maxURLs int) *SitemapFetcher {
	if maxSitemaps <= 0 {
		maxSitemaps = 10
	}
	if maxURLs <= 0 {
		maxURLs = 500
	}
	return &SitemapFetcher{fetcher: fetcher, maxSitemaps: maxSitemaps, maxURLs: maxURLs}
}

// Fetch retrieves every given sitemap URL, recursing into sitemap
// indexes, and returns entries sorted by priority descending. Parse
// failures are logged and skipped; an unreachable sitemap never fails a
// crawl.
func (s *SitemapFetcher) Fetch(ctx context.Context, sitemapURLs []string) []SitemapEntry {
	var entries []SitemapEntry
	fetched := 0

	var walk func(url string)
	walk = func(url string) {
		if fetched >= s.maxSitemaps || len(entries) >= s.maxURLs {
			return
		}
		fetched++

		body, ok := s.download(ctx, url)
		if !ok {
			return
		}

		var index sitemapIndexXML
		if err := xml.Unmarshal(body, &index); err == nil && len(index.Sitemaps) > 0 {
			for _, sm := range index.Sitemaps {
				loc := strings.TrimSpace(sm.Loc)
				if loc == "" {
					continue
				}
				walk(loc)
				if fetched >= s.maxSitemaps || len(entries) >= s.maxURLs {
					return
				}
			}
			return
		}

		var urlset urlsetXML
		if err := xml.Unmarshal(body, &urlset); err != nil {
			zap.L().Debug("sitemap parse failed",
				zap.String("url", url),
				zap.Error(err),
			)
			return
		}

		for _, u := range urlset.URLs {
			if len(entries) >= s.maxURLs {
				return
			}
			loc := strings.TrimSpace(u.Loc)
			if loc == "" {
				continue
			}
			priority := defaultSitemapPriority
			if u.Priority != "" {
				if p, err := strconv.ParseFloat(strings.TrimSpace(u.Priority), 64); err == nil {
					priority = p
				}
			}
			entries = append(entries, SitemapEntry{
				Loc:        loc,
				LastMod:    strings.TrimSpace(u.LastMod),
				ChangeFreq: strings.TrimSpace(u.ChangeFreq),
				Priority:   priority,
			})
		}
	}

	for _, url := range sitemapURLs {
		walk(url)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority > entries[j].Priority
	})
	return entries
}

// download GETs one sitemap document and transparently decompresses
// gzip, whether signalled by the .gz suffix, the Content-Encoding
// header, or the gzip magic bytes.
func (s *SitemapFetcher) download(ctx context.Context, url string) ([]byte, bool) {
	body, status, err := s.fetcher.FetchText(ctx, url)
	if err != nil || status != http.StatusOK {
		zap.L().Debug("sitemap fetch failed",
			zap.String("url", url),
			zap.Int("status", status),
			zap.Error(err),
		)
		return nil, false
	}

	raw := []byte(body)
	if isGzip(raw) {
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, false
		}
		defer gz.Close() //nolint:errcheck
		decoded, err := io.ReadAll(io.LimitReader(gz, maxBodyBytes))
		if err != nil {
			return nil, false
		}
		return decoded, true
	}

	return raw, true
}

func isGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}
