package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractMetadata_HeadTags(t *testing.T) {
	doc := mustParse(t, `<html lang="en">
<head>
  <title>Acme Widgets</title>
  <meta name="description" content="Widgets for everyone.">
  <meta name="keywords" content="widgets, gadgets , tools">
  <meta name="author" content="Jo Writer">
  <meta property="og:title" content="Acme Widgets - Home">
  <meta property="og:site_name" content="Acme">
  <meta property="article:published_time" content="2024-03-01T00:00:00Z">
  <link rel="canonical" href="https://example.com/">
  <link rel="icon" href="/favicon.ico">
</head>
<body><h1>Acme</h1></body></html>`)

	md := ExtractMetadata(doc, "example.com")

	assert.Equal(t, "Acme Widgets", md.Title)
	assert.Equal(t, "Widgets for everyone.", md.Description)
	assert.Equal(t, []string{"widgets", "gadgets", "tools"}, md.Keywords)
	assert.Equal(t, "Jo Writer", md.Author)
	assert.Equal(t, "Acme Widgets - Home", md.OGTitle)
	assert.Equal(t, "Acme", md.OGSiteName)
	assert.Equal(t, "2024-03-01T00:00:00Z", md.PublishedDate)
	assert.Equal(t, "https://example.com/", md.CanonicalURL)
	assert.Equal(t, "/favicon.ico", md.Favicon)
	assert.Equal(t, "en", md.Language)
}

func TestExtractMetadata_HeadingsAndLinks(t *testing.T) {
	doc := mustParse(t, `<html><body>
<h1>Main</h1>
<h2>Section A</h2>
<h2>Section B</h2>
<h3>Detail</h3>
<a href="/about">about</a>
<a href="https://example.com/docs">docs</a>
<a href="https://other.com/elsewhere">out</a>
<a href="mailto:hi@example.com">mail</a>
<img src="/a.png"><img src="/b.png">
</body></html>`)

	md := ExtractMetadata(doc, "example.com")

	assert.Equal(t, []string{"Main"}, md.Headings.H1)
	assert.Equal(t, []string{"Section A", "Section B"}, md.Headings.H2)
	assert.Equal(t, []string{"Detail"}, md.Headings.H3)
	assert.Equal(t, 2, md.InternalLinks)
	assert.Equal(t, 1, md.ExternalLinks)
	assert.Equal(t, 2, md.ImageCount)
}

func TestExtractSchemaTypes_JSONLD(t *testing.T) {
	doc := mustParse(t, `<html><head>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Organization","name":"Acme",
 "address":{"@type":"PostalAddress","addressLocality":"Springfield"}}
</script>
<script type="application/ld+json">
{"@graph":[{"@type":"FAQPage"},{"@type":["Product","Thing"]}]}
</script>
<script type="application/ld+json">not json at all</script>
</head><body>
<div itemscope itemtype="https://schema.org/BreadcrumbList"></div>
</body></html>`)

	types := ExtractSchemaTypes(doc)
	assert.Equal(t, []string{"Organization", "PostalAddress", "FAQPage", "Product", "Thing", "BreadcrumbList"}, types)
}

func TestExtractSchemaTypes_Deduplicates(t *testing.T) {
	doc := mustParse(t, `<html><body>
<script type="application/ld+json">{"@type":"Organization"}</script>
<script type="application/ld+json">{"@type":"Organization"}</script>
</body></html>`)

	assert.Equal(t, []string{"Organization"}, ExtractSchemaTypes(doc))
}
