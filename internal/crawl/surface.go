package crawl

import (
	"net/url"
	"strings"

	"github.com/findablehq/findable-cli/internal/model"
)

// docsPathPrefixes mark documentation surfaces by path.
var docsPathPrefixes = []string{
	"/docs",
	"/documentation",
	"/guide",
	"/tutorial",
	"/api-reference",
	"/reference",
	"/sdk",
	"/manual",
	"/getting-started",
	"/quickstart",
	"/how-to",
}

// docsHostPrefixes mark documentation surfaces by subdomain.
var docsHostPrefixes = []string{
	"docs.",
	"help.",
	"developer.",
	"developers.",
	"support.",
	"guide.",
	"learn.",
}

// ClassifySurface tags a URL as docs or marketing. Docs surfaces are
// reference/guide content; everything else (landing pages, blog,
// pricing) is marketing.
func ClassifySurface(rawURL string) model.Surface {
	u, err := url.Parse(rawURL)
	if err != nil {
		return model.SurfaceMarketing
	}

	host := strings.ToLower(u.Hostname())
	for _, prefix := range docsHostPrefixes {
		if strings.HasPrefix(host, prefix) {
			return model.SurfaceDocs
		}
	}

	path := strings.ToLower(u.Path)
	for _, prefix := range docsPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return model.SurfaceDocs
		}
	}

	return model.SurfaceMarketing
}
