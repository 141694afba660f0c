// Package crawl implements the polite BFS crawler: URL normalization,
// robots.txt and sitemap parsing, rate-gated fetching, surface
// classification, and cached crawl reuse.
package crawl

import (
	"net/url"
	"sort"
	"strings"
)

// skipExtensions are file extensions that never yield crawlable HTML.
var skipExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".svg": true, ".ico": true, ".bmp": true, ".tiff": true, ".avif": true,
	".mp4": true, ".webm": true, ".avi": true, ".mov": true, ".wmv": true,
	".mp3": true, ".wav": true, ".ogg": true, ".flac": true, ".m4a": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".csv": true,
	".zip": true, ".tar": true, ".gz": true, ".rar": true, ".7z": true,
	".css": true, ".js": true, ".mjs": true, ".json": true, ".rss": true, ".atom": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
	".exe": true, ".dmg": true, ".apk": true, ".ics": true,
}

// skipPathFragments mark feed endpoints and CMS internals that are not
// content pages.
var skipPathFragments = []string{
	"/wp-admin",
	"/wp-login",
	"/wp-json",
	"/xmlrpc.php",
	"/cgi-bin/",
	"/cdn-cgi/",
}

// skipPathSuffixes are feed paths matched at the end of the path.
var skipPathSuffixes = []string{"/feed", "/rss", "/atom.xml", "/feed.xml", "/rss.xml"}

// trackingParamPrefixes are query parameter prefixes stripped during
// normalization.
var trackingParamPrefixes = []string{"utm_", "mc_"}

// trackingParamExact are query parameters stripped by exact
// (case-insensitive) name.
var trackingParamExact = map[string]bool{
	"fbclid":     true,
	"gclid":      true,
	"msclkid":    true,
	"dclid":      true,
	"twclid":     true,
	"igshid":     true,
	"phpsessid":  true,
	"jsessionid": true,
	"sessionid":  true,
	"session_id": true,
	"sid":        true,
}

// Normalize canonicalizes a URL: https forced, host lowercased with
// "www." stripped, default ports removed, fragment dropped, tracking
// params removed, remaining query sorted, trailing slash removed from
// non-root paths. Returns ok=false for URLs that can never be crawlable
// HTML: empty input, non-http(s) schemes, denied extensions, feed and
// CMS-internal paths. Normalize is idempotent on its own output.
func Normalize(raw string) (string, bool) {
	return NormalizeRef(raw, nil)
}

// NormalizeRef is Normalize with relative resolution against base.
// Protocol-relative references ("//host/path") are forced to https.
func NormalizeRef(raw string, base *url.URL) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}

	lower := strings.ToLower(raw)
	for _, scheme := range []string{"mailto:", "tel:", "javascript:", "data:", "ftp:", "file:"} {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	if base != nil && !u.IsAbs() {
		u = base.ResolveReference(u)
	}

	switch u.Scheme {
	case "http", "https":
	case "":
		// Bare host without scheme ("example.com/about").
		u, err = url.Parse("https://" + raw)
		if err != nil || u.Host == "" {
			return "", false
		}
	default:
		return "", false
	}

	u.Scheme = "https"
	u.Fragment = ""

	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", false
	}
	u.Host = host

	path := u.Path
	if path == "" {
		path = "/"
	}
	if skippedPath(path) {
		return "", false
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	u.Path = path
	u.RawPath = ""

	u.RawQuery = cleanQuery(u.Query())

	return u.String(), true
}

// skippedPath reports whether the path is a denied extension, feed, or
// CMS-internal location.
func skippedPath(path string) bool {
	lower := strings.ToLower(path)

	if idx := strings.LastIndex(lower, "."); idx >= 0 && idx > strings.LastIndex(lower, "/") {
		if skipExtensions[lower[idx:]] {
			return true
		}
	}

	for _, frag := range skipPathFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}

	trimmed := strings.TrimSuffix(lower, "/")
	for _, suffix := range skipPathSuffixes {
		if strings.HasSuffix(trimmed, suffix) {
			return true
		}
	}

	return false
}

// cleanQuery drops tracking parameters and re-encodes the rest in
// sorted key order for a stable canonical form.
func cleanQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if isTrackingParam(k) {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			if v != "" {
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
	}
	return b.String()
}

func isTrackingParam(name string) bool {
	lower := strings.ToLower(name)
	if trackingParamExact[lower] {
		return true
	}
	for _, prefix := range trackingParamPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Domain extracts the registrable domain used as the crawl key: the
// lowercased host with any "www." prefix removed.
func Domain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www."), nil
}

// IsInternal reports whether the URL belongs to the given domain: its
// host equals the domain or is a subdomain of it.
func IsInternal(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	return host == domain || strings.HasSuffix(host, "."+domain)
}
