package analyze

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/findablehq/findable-cli/internal/model"
)

func jsPage(t *testing.T, html, mainContent string) Page {
	t.Helper()
	return testPage(t, html, &model.ExtractedPage{
		URL:         "https://acme.com/",
		MainContent: mainContent,
	})
}

func TestDetectJS_FullServerRender(t *testing.T) {
	page := jsPage(t, `<html><body><article>content</article></body></html>`,
		strings.Repeat("Acme builds widgets for fleet operators. ", 40))

	r := DetectJS(page)
	assert.Equal(t, 100.0, r.Score)
	assert.Equal(t, JSSeverityNone, r.Severity)
	assert.False(t, r.IsEmptyShell)
	assert.False(t, r.LikelyJSDependent)
	assert.False(t, r.NeedsRendering(60))
}

func TestDetectJS_EmptyShellIsBlocking(t *testing.T) {
	page := jsPage(t, `<html><body><div id="__next"></div></body></html>`, "")

	r := DetectJS(page)
	assert.Zero(t, r.Score)
	assert.True(t, r.IsEmptyShell)
	assert.Equal(t, JSSeverityBlocking, r.Severity)
	assert.Equal(t, "Next.js", r.FrameworkDetected)
	assert.Equal(t, model.LevelLimited, r.Level)
	assert.True(t, r.NeedsRendering(0))
	assert.Contains(t, r.Issues, "page is an empty shell without JavaScript; AI crawlers see no content")
	assert.Contains(t, r.Issues, "enable server-side rendering or prerendering for Next.js")
}

func TestDetectJS_FrameworkPenalty(t *testing.T) {
	page := jsPage(t, `<html><body><div data-reactroot><article>content</article></div></body></html>`,
		strings.Repeat("Plenty of server-rendered words here. ", 50))

	r := DetectJS(page)
	assert.Equal(t, "React", r.FrameworkDetected)
	assert.Equal(t, 80.0, r.Score)
	assert.Contains(t, r.Issues, "React detected; verify content is server-rendered")
}

func TestDetectJS_ThinContentPenalties(t *testing.T) {
	// Between 100 and 500 chars of main content.
	thin := jsPage(t, `<html><body><p>short</p></body></html>`, strings.Repeat("x", 200))
	r := DetectJS(thin)
	assert.Equal(t, 60.0, r.Score)
	assert.Contains(t, r.Issues, "very little content renders without JavaScript")

	// Between 500 and 1500 chars.
	mid := jsPage(t, `<html><body><p>medium</p></body></html>`, strings.Repeat("x", 800))
	r = DetectJS(mid)
	assert.Equal(t, 85.0, r.Score)
}

func TestDetectJS_ScriptCountPenalty(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><head>")
	for i := 0; i < 25; i++ {
		b.WriteString(`<script src="/bundle.js"></script>`)
	}
	b.WriteString("</head><body><article>content</article></body></html>")

	page := jsPage(t, b.String(), strings.Repeat("Server rendered copy. ", 80))
	r := DetectJS(page)
	assert.Equal(t, 25, r.ScriptCount)
	assert.Equal(t, 90.0, r.Score)
}

func TestDetectJS_WarningWhenJSDependent(t *testing.T) {
	// Thin content plus a framework marker dips under the dependence
	// threshold without being an empty shell.
	page := jsPage(t, `<html><body><div id="app"><p>bit</p></div></body></html>`,
		strings.Repeat("x", 150))

	r := DetectJS(page)
	assert.Equal(t, 40.0, r.Score)
	assert.True(t, r.LikelyJSDependent)
	assert.Equal(t, JSSeverityWarning, r.Severity)
	assert.True(t, r.NeedsRendering(50))
}
