package crawl

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbe_HealthySite(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		htmlPage(w, "Home", "<p>welcome</p>")
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "User-agent: *\nSitemap: https://%s/sitemap.xml\n", r.Host)
	})
	srv, fetcher := newTestSite(t, mux)

	probe := Probe(context.Background(), fetcher, srv.URL)
	assert.True(t, probe.Reachable)
	assert.Equal(t, 200, probe.StatusCode)
	assert.True(t, probe.HasRobots)
	assert.True(t, probe.HasSitemap, "sitemap listed in robots counts without fetching it")
	assert.False(t, probe.Blocked)
}

func TestProbe_SitemapFallbackProbe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sitemap.xml" {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, `<urlset></urlset>`)
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		htmlPage(w, "Home", "<p>welcome</p>")
	})
	srv, fetcher := newTestSite(t, mux)

	probe := Probe(context.Background(), fetcher, srv.URL)
	assert.True(t, probe.Reachable)
	assert.False(t, probe.HasRobots)
	assert.True(t, probe.HasSitemap)
}

func TestProbe_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusInternalServerError)
	})
	srv, fetcher := newTestSite(t, mux)

	probe := Probe(context.Background(), fetcher, srv.URL)
	assert.False(t, probe.Reachable)
	assert.Equal(t, 500, probe.StatusCode)
}

func TestSitemapURL(t *testing.T) {
	assert.Equal(t, "https://example.com/sitemap.xml", sitemapURL("https://example.com/deep/path"))
	assert.Equal(t, "https://example.com/sitemap.xml", sitemapURL("https://example.com"))
	assert.Empty(t, sitemapURL("not-a-url"))
}
