package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/findablehq/findable-cli/internal/crawl"
	"github.com/findablehq/findable-cli/internal/model"
)

// ExtractMetadata reads descriptive metadata from an unmodified page
// DOM: head tags, Open Graph and Twitter cards, headings, link and
// image counts, and schema.org types from JSON-LD and microdata.
// pageDomain is the crawl domain used to split internal from external
// links.
func ExtractMetadata(doc *goquery.Document, pageDomain string) model.PageMetadata {
	md := model.PageMetadata{}

	md.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		property, _ := sel.Attr("property")
		content, _ := sel.Attr("content")
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}

		switch strings.ToLower(name) {
		case "description":
			md.Description = content
		case "keywords":
			for _, kw := range strings.Split(content, ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					md.Keywords = append(md.Keywords, kw)
				}
			}
		case "author":
			md.Author = content
		case "article:published_time", "publish-date", "date":
			if md.PublishedDate == "" {
				md.PublishedDate = content
			}
		case "twitter:card":
			md.TwitterCard = content
		case "twitter:title":
			md.TwitterTitle = content
		case "twitter:image":
			md.TwitterImage = content
		}

		switch strings.ToLower(property) {
		case "og:title":
			md.OGTitle = content
		case "og:description":
			md.OGDescription = content
		case "og:image":
			md.OGImage = content
		case "og:type":
			md.OGType = content
		case "og:site_name":
			md.OGSiteName = content
		case "article:published_time":
			md.PublishedDate = content
		case "article:modified_time":
			md.ModifiedDate = content
		}
	})

	if canonical, ok := doc.Find("link[rel=canonical]").First().Attr("href"); ok {
		md.CanonicalURL = strings.TrimSpace(canonical)
	}
	if favicon, ok := doc.Find(`link[rel="icon"], link[rel="shortcut icon"]`).First().Attr("href"); ok {
		md.Favicon = strings.TrimSpace(favicon)
	}
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		md.Language = strings.TrimSpace(lang)
	}

	md.Headings = extractHeadings(doc)
	md.ImageCount = doc.Find("img").Length()

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") || strings.HasPrefix(href, "//") {
			if crawl.IsInternal(strings.TrimPrefix(href, "//"), pageDomain) ||
				crawl.IsInternal(href, pageDomain) {
				md.InternalLinks++
			} else {
				md.ExternalLinks++
			}
			return
		}
		// Relative links stay on the site.
		md.InternalLinks++
	})

	md.SchemaTypes = ExtractSchemaTypes(doc)
	md.WordCount = WordCount(doc.Find("body").Text())

	return md
}

func extractHeadings(doc *goquery.Document) model.Headings {
	collect := func(sel string) []string {
		var out []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if text := CollapseWhitespace(s.Text()); text != "" {
				out = append(out, text)
			}
		})
		return out
	}
	return model.Headings{
		H1: collect("h1"),
		H2: collect("h2"),
		H3: collect("h3"),
		H4: collect("h4"),
		H5: collect("h5"),
		H6: collect("h6"),
	}
}

// ExtractSchemaTypes collects schema.org @type values from every
// JSON-LD block (walking @graph and nested arrays) plus microdata
// itemtype attributes. Order of first appearance; duplicates removed.
func ExtractSchemaTypes(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var types []string

	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		types = append(types, t)
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var parsed any
		if err := json.Unmarshal([]byte(sel.Text()), &parsed); err != nil {
			// Malformed JSON-LD is an issue for the schema analyzer,
			// not a metadata failure.
			return
		}
		walkJSONLD(parsed, add)
	})

	doc.Find("[itemtype]").Each(func(_ int, sel *goquery.Selection) {
		itemtype, _ := sel.Attr("itemtype")
		if idx := strings.Index(itemtype, "schema.org/"); idx >= 0 {
			add(itemtype[idx+len("schema.org/"):])
		}
	})

	return types
}

// walkJSONLD visits every node of a decoded JSON-LD value and reports
// each @type. @graph members and nested objects are walked recursively.
func walkJSONLD(node any, add func(string)) {
	switch v := node.(type) {
	case map[string]any:
		switch t := v["@type"].(type) {
		case string:
			add(t)
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		}
		for key, child := range v {
			if key == "@type" {
				continue
			}
			walkJSONLD(child, add)
		}
	case []any:
		for _, item := range v {
			walkJSONLD(item, add)
		}
	}
}
