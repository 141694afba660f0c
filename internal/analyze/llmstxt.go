package analyze

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/findablehq/findable-cli/internal/crawl"
	"github.com/findablehq/findable-cli/internal/model"
)

var llmsLinkPattern = regexp.MustCompile(`^-\s*\[([^\]]+)\]\(([^)]+)\)(?::\s*(.+))?$`)

// LlmsTxtLink is one curated entry point from an llms.txt section.
type LlmsTxtLink struct {
	Text        string `json:"text"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// LlmsTxtSection is one "## heading" group of links.
type LlmsTxtSection struct {
	Name  string        `json:"name"`
	Links []LlmsTxtLink `json:"links,omitempty"`
}

// LlmsTxtResult reports presence and quality of /llms.txt.
type LlmsTxtResult struct {
	Score       float64          `json:"score"`
	Level       model.Level      `json:"level"`
	Found       bool             `json:"found"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Sections    []LlmsTxtSection `json:"sections,omitempty"`
	LinkCount   int              `json:"link_count"`
	Issues      []string         `json:"issues,omitempty"`
}

// AnalyzeLlmsTxt fetches and scores /llms.txt for the site. A missing
// file scores zero without error.
func AnalyzeLlmsTxt(ctx context.Context, fetcher *crawl.Fetcher, siteURL string) LlmsTxtResult {
	r := LlmsTxtResult{Level: model.LevelLimited}

	u, err := url.Parse(siteURL)
	if err != nil {
		r.Issues = append(r.Issues, "invalid site url")
		return r
	}
	llmsURL := u.Scheme + "://" + u.Host + "/llms.txt"

	body, status, err := fetcher.FetchText(ctx, llmsURL)
	if err != nil || status != http.StatusOK {
		zap.L().Debug("llms.txt not found",
			zap.String("url", llmsURL),
			zap.Int("status", status),
		)
		r.Issues = append(r.Issues, "no /llms.txt; publishing one gives LLMs a curated site map")
		return r
	}

	// Some servers return their HTML 404 page with status 200.
	if strings.Contains(strings.ToLower(body[:min(len(body), 512)]), "<html") {
		r.Issues = append(r.Issues, "/llms.txt returned HTML, not the markdown convention")
		return r
	}

	r.Found = true
	ParseLlmsTxt(body, &r)
	r.Score = scoreLlmsTxt(&r)
	r.Level = model.LevelForScore(r.Score)
	return r
}

// ParseLlmsTxt parses the markdown-ish llms.txt convention into r:
// "# title", "> description", "## section" groups of
// "- [text](url): desc" links.
func ParseLlmsTxt(body string, r *LlmsTxtResult) {
	var current *LlmsTxtSection

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "##"):
			r.Sections = append(r.Sections, LlmsTxtSection{
				Name: strings.TrimSpace(strings.TrimPrefix(line, "##")),
			})
			current = &r.Sections[len(r.Sections)-1]
		case strings.HasPrefix(line, "#"):
			if r.Title == "" {
				r.Title = strings.TrimSpace(strings.TrimPrefix(line, "#"))
			}
		case strings.HasPrefix(line, ">"):
			desc := strings.TrimSpace(strings.TrimPrefix(line, ">"))
			if r.Description == "" {
				r.Description = desc
			} else {
				r.Description += " " + desc
			}
		case strings.HasPrefix(line, "-"):
			m := llmsLinkPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			link := LlmsTxtLink{Text: m[1], URL: m[2], Description: strings.TrimSpace(m[3])}
			r.LinkCount++
			if current != nil {
				current.Links = append(current.Links, link)
			} else {
				// Links before any section go into an implicit one.
				r.Sections = append(r.Sections, LlmsTxtSection{Links: []LlmsTxtLink{link}})
				current = &r.Sections[len(r.Sections)-1]
			}
		}
	}
}

func scoreLlmsTxt(r *LlmsTxtResult) float64 {
	score := 40.0 // presence

	if r.Title != "" {
		score += 15
	} else {
		r.Issues = append(r.Issues, "llms.txt has no # title")
	}
	if r.Description != "" {
		score += 15
	} else {
		r.Issues = append(r.Issues, "llms.txt has no > description")
	}
	if len(r.Sections) > 0 {
		score += 10
	}
	switch {
	case r.LinkCount >= 5:
		score += 20
	case r.LinkCount > 0:
		score += 10
	default:
		r.Issues = append(r.Issues, "llms.txt lists no links")
	}

	described := 0
	for _, s := range r.Sections {
		for _, l := range s.Links {
			if l.Description != "" {
				described++
			}
		}
	}
	if r.LinkCount > 0 && described == 0 {
		r.Issues = append(r.Issues, "llms.txt links have no descriptions")
	}

	return clamp(score)
}
