package crawl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRobots = `# robots for example.com
User-agent: *
Disallow: /admin
Allow: /admin/public
Crawl-delay: 2

User-agent: FindableBot
Disallow: /private

Sitemap: https://example.com/sitemap.xml
Sitemap: https://example.com/sitemap-news.xml
`

func TestRobotsFile_PolicyFor_WildcardGroup(t *testing.T) {
	f := &RobotsFile{Raw: sampleRobots, StatusCode: 200}
	policy := f.PolicyFor("SomeOtherBot")

	require.Len(t, policy.Rules, 2)
	assert.Equal(t, "/admin", policy.Rules[0].Path)
	assert.False(t, policy.Rules[0].Allowed)
	assert.Equal(t, "/admin/public", policy.Rules[1].Path)
	assert.True(t, policy.Rules[1].Allowed)
	assert.Equal(t, 2*time.Second, policy.CrawlDelay)
}

func TestRobotsFile_PolicyFor_NamedAgent(t *testing.T) {
	f := &RobotsFile{Raw: sampleRobots, StatusCode: 200}
	policy := f.PolicyFor("FindableBot")

	// The named agent picks up the wildcard group plus its own; sitemaps
	// are global.
	assert.Equal(t, []string{"/admin", "/private"}, policy.BlockedPaths())
	assert.Equal(t, []string{
		"https://example.com/sitemap.xml",
		"https://example.com/sitemap-news.xml",
	}, policy.Sitemaps)
}

func TestRobotsFile_PolicyFor_StackedAgents(t *testing.T) {
	raw := `User-agent: GPTBot
User-agent: FindableBot
Disallow: /blocked
`
	f := &RobotsFile{Raw: raw, StatusCode: 200}

	assert.False(t, f.PolicyFor("FindableBot").IsAllowed("/blocked"))
	assert.False(t, f.PolicyFor("GPTBot").IsAllowed("/blocked"))
	assert.True(t, f.PolicyFor("OtherBot").IsAllowed("/blocked"))
}

func TestRobotsFile_FetchFailed_Permissive(t *testing.T) {
	f := &RobotsFile{FetchFailed: true}
	policy := f.PolicyFor("FindableBot")

	assert.True(t, policy.FetchFailed)
	assert.Empty(t, policy.Rules)
	assert.True(t, policy.IsAllowed("/anything"))
}

func TestRobotsPolicy_IsAllowed_LongestMatchWins(t *testing.T) {
	p := &RobotsPolicy{Rules: []RobotsRule{
		{Path: "/shop", Allowed: false},
		{Path: "/shop/catalog", Allowed: true},
	}}

	assert.False(t, p.IsAllowed("/shop/cart"))
	assert.True(t, p.IsAllowed("/shop/catalog/item-1"))
	assert.True(t, p.IsAllowed("/about"), "no matching rule defaults to allow")
}

func TestRobotsPolicy_IsAllowed_AllowBeatsDisallowOnTie(t *testing.T) {
	p := &RobotsPolicy{Rules: []RobotsRule{
		{Path: "/page", Allowed: false},
		{Path: "/page", Allowed: true},
	}}
	assert.True(t, p.IsAllowed("/page"))
}

func TestRobotsPolicy_BlocksAll(t *testing.T) {
	blocked := &RobotsPolicy{Rules: []RobotsRule{{Path: "/", Allowed: false}}}
	assert.True(t, blocked.BlocksAll())

	open := &RobotsPolicy{}
	assert.False(t, open.BlocksAll())
}

func TestRobotsPathMatches_Wildcards(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/private", "/private/page", true},
		{"/private", "/public", false},
		{"/*.php", "/index.php", true},
		{"/*.php", "/index.html", false},
		{"/search*results", "/search/all/results/page", true},
		{"/docs/*.pdf$", "/docs/manual.pdf", true},
		{"/docs/*.pdf$", "/docs/manual.pdf.html", false},
		{"/exact$", "/exact", true},
		{"/exact$", "/exact/more", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, robotsPathMatches(tt.pattern, tt.path),
			"pattern %q vs path %q", tt.pattern, tt.path)
	}
}
