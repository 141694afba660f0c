package analyze

import (
	"strings"

	"github.com/findablehq/findable-cli/internal/crawl"
	"github.com/findablehq/findable-cli/internal/model"
)

// The two bot pipelines AI answers flow through. Search-indexed
// engines read pages via the classic search crawlers; direct-crawl
// engines fetch with their own bots.
var (
	searchIndexedBots = []string{"Googlebot", "Bingbot"}
	directCrawlBots   = []string{"GPTBot", "ClaudeBot", "PerplexityBot", "Google-Extended"}
)

// Pipeline weights: search indexing still carries most AI answer
// traffic.
const (
	searchIndexedWeight = 0.6
	directCrawlWeight   = 0.4
)

// BotAccess is one bot's verdict under the site's robots policy.
type BotAccess struct {
	Bot          string   `json:"bot"`
	Allowed      bool     `json:"allowed"`
	BlockedPaths []string `json:"blocked_paths,omitempty"`
}

// RobotsAIResult reports which AI-relevant crawlers the site admits.
type RobotsAIResult struct {
	Score              float64        `json:"score"`
	Level              model.Level    `json:"level"`
	Severity           model.Severity `json:"severity"`
	SearchIndexedScore float64        `json:"search_indexed_score"`
	DirectCrawlScore   float64        `json:"direct_crawl_score"`
	Bots               []BotAccess    `json:"bots"`
	CriticalBlocked    []string       `json:"critical_blocked,omitempty"`
	WarningBlocked     []string       `json:"warning_blocked,omitempty"`
	Summary            string         `json:"summary"`
	Issues             []string       `json:"issues,omitempty"`
}

// AnalyzeRobotsAI evaluates the robots file against both bot
// pipelines. Blocking any search bot is critical; blocking only
// direct-crawl bots is a warning. A robots fetch failure scores
// permissively, matching the crawler's policy.
func AnalyzeRobotsAI(robots *crawl.RobotsFile) RobotsAIResult {
	r := RobotsAIResult{Severity: model.SeverityGood}

	check := func(bots []string) (float64, []string) {
		allowed := 0
		var blocked []string
		for _, bot := range bots {
			policy := robots.PolicyFor(bot)
			ok := policy.IsAllowed("/")
			r.Bots = append(r.Bots, BotAccess{
				Bot:          bot,
				Allowed:      ok,
				BlockedPaths: policy.BlockedPaths(),
			})
			if ok {
				allowed++
			} else {
				blocked = append(blocked, bot)
			}
		}
		return 100 * float64(allowed) / float64(len(bots)), blocked
	}

	var searchBlocked, directBlocked []string
	r.SearchIndexedScore, searchBlocked = check(searchIndexedBots)
	r.DirectCrawlScore, directBlocked = check(directCrawlBots)

	r.Score = clamp(r.SearchIndexedScore*searchIndexedWeight + r.DirectCrawlScore*directCrawlWeight)

	switch {
	case len(searchBlocked) > 0:
		r.Severity = model.SeverityCritical
		r.CriticalBlocked = searchBlocked
		r.WarningBlocked = directBlocked
		r.Summary = "search crawlers blocked: " + strings.Join(searchBlocked, ", ") +
			"; the site is invisible to search-indexed AI answers"
		r.Issues = append(r.Issues, "robots.txt blocks "+strings.Join(searchBlocked, ", "))
	case len(directBlocked) > 0:
		r.Severity = model.SeverityWarning
		r.WarningBlocked = directBlocked
		r.Summary = "AI crawlers blocked (" + strings.Join(directBlocked, ", ") +
			") but the site stays visible via search indexes"
		r.Issues = append(r.Issues, "robots.txt blocks direct AI crawlers: "+strings.Join(directBlocked, ", "))
	default:
		r.Summary = "all search and AI crawlers allowed"
	}

	r.Level = model.LevelForScore(r.Score)
	return r
}
