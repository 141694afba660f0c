package analyze

import (
	"strings"

	"github.com/findablehq/findable-cli/internal/model"
)

// emptyShellThreshold is the main-content length below which a page is
// an empty JS shell.
const emptyShellThreshold = 100

// jsDependentThreshold: composite scores below this mark the page as
// likely needing JavaScript to render its content.
const jsDependentThreshold = 50

// frameworkMarkers map detection substrings to framework names,
// checked against the raw HTML.
var frameworkMarkers = []struct {
	Marker    string
	Framework string
}{
	{`id="__next"`, "Next.js"},
	{"__NEXT_DATA__", "Next.js"},
	{`id="__nuxt"`, "Nuxt"},
	{"window.__NUXT__", "Nuxt"},
	{`id="root"`, "React"},
	{"data-reactroot", "React"},
	{`id="app"`, "Vue"},
	{"data-v-app", "Vue"},
	{"ng-version", "Angular"},
	{"ng-app", "Angular"},
	{"data-svelte", "Svelte"},
	{"__SVELTEKIT", "Svelte"},
	{"window.__INITIAL_STATE__", "SPA"},
	{"window.__APP_STATE__", "SPA"},
}

// JSSeverity grades how badly JS dependence hurts crawlability.
type JSSeverity string

const (
	JSSeverityNone     JSSeverity = "none"
	JSSeverityWarning  JSSeverity = "warning"
	JSSeverityBlocking JSSeverity = "blocking"
)

// JSDetectionResult diagnoses how much of the page's content depends
// on JavaScript execution.
type JSDetectionResult struct {
	Score             float64        `json:"score"`
	Level             model.Level    `json:"level"`
	FrameworkDetected string         `json:"framework_detected,omitempty"`
	MainContentLength int            `json:"main_content_length"`
	ScriptCount       int            `json:"script_count"`
	IsEmptyShell      bool           `json:"is_empty_shell"`
	LikelyJSDependent bool           `json:"likely_js_dependent"`
	Severity          JSSeverity     `json:"severity"`
	Issues            []string       `json:"issues,omitempty"`
}

// NeedsRendering reports whether the page would need a JS renderer to
// expose content above the given score threshold.
func (r *JSDetectionResult) NeedsRendering(threshold float64) bool {
	return r.IsEmptyShell || r.Score < threshold
}

// DetectJS looks for framework markers and measures how much main
// content survives without JavaScript. A main content under 100 chars
// is an empty shell and blocking.
func DetectJS(page Page) JSDetectionResult {
	r := JSDetectionResult{Severity: JSSeverityNone}

	r.MainContentLength = len(page.Extracted.MainContent)

	if page.Doc != nil {
		r.ScriptCount = page.Doc.Find("script[src]").Length()
	}

	// Framework markers are matched against the raw HTML: root divs
	// are stripped by extraction but remain in the source.
	html := page.Extracted.FullText
	if page.Doc != nil {
		if h, err := page.Doc.Html(); err == nil {
			html = h
		}
	}
	for _, fm := range frameworkMarkers {
		if strings.Contains(html, fm.Marker) {
			r.FrameworkDetected = fm.Framework
			break
		}
	}

	score := 100.0
	switch {
	case r.MainContentLength < emptyShellThreshold:
		score = 0
		r.IsEmptyShell = true
		r.Severity = JSSeverityBlocking
		r.Issues = append(r.Issues, "page is an empty shell without JavaScript; AI crawlers see no content")
	case r.MainContentLength < 500:
		score -= 40
		r.Issues = append(r.Issues, "very little content renders without JavaScript")
	case r.MainContentLength < 1500:
		score -= 15
	}

	if r.FrameworkDetected != "" {
		score -= 20
		if !r.IsEmptyShell {
			r.Issues = append(r.Issues, r.FrameworkDetected+" detected; verify content is server-rendered")
		}
	}
	if r.ScriptCount > 20 {
		score -= 10
	}

	r.Score = clamp(score)
	r.LikelyJSDependent = r.Score < jsDependentThreshold
	if r.LikelyJSDependent && r.Severity == JSSeverityNone {
		r.Severity = JSSeverityWarning
	}
	if r.IsEmptyShell {
		r.Level = model.LevelLimited
	} else {
		r.Level = model.LevelForScore(r.Score)
	}
	if r.IsEmptyShell && r.FrameworkDetected != "" {
		r.Issues = append(r.Issues, "enable server-side rendering or prerendering for "+r.FrameworkDetected)
	}
	return r
}
