package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/findablehq/findable-cli/internal/model"
	"github.com/findablehq/findable-cli/internal/score"
)

// FormatReport generates a human-readable audit report.
func FormatReport(result *AuditResult) string {
	var b strings.Builder

	name := result.Site.Name
	if name == "" {
		name = result.Site.Domain
	}
	fmt.Fprintf(&b, "# Findable Score Report: %s\n", name)
	fmt.Fprintf(&b, "Domain: %s\n", result.Site.Domain)
	if result.Run != nil {
		fmt.Fprintf(&b, "Run: %s (%s)\n", result.Run.ID, result.Run.Status)
	}
	b.WriteString("\n")

	// Summary.
	b.WriteString("## Summary\n")
	if result.Score != nil {
		fmt.Fprintf(&b, "- Score: %.1f / 100 (grade %s)\n", result.Score.TotalScore, result.Score.Grade)
		if result.Score.IsPartial {
			fmt.Fprintf(&b, "- Partial audit: %d of %d pillars evaluated (%.1f%% of evaluated points)\n",
				result.Score.PillarsEvaluated,
				result.Score.PillarsEvaluated+result.Score.PillarsNotEvaluated,
				result.Score.EvaluatedScorePct)
		}
	} else {
		b.WriteString("- Score: not computed\n")
	}
	if result.Crawl != nil {
		fmt.Fprintf(&b, "- Pages crawled: %d (%d docs, %d marketing)\n",
			len(result.Crawl.Pages), result.Crawl.DocsPagesCrawled, result.Crawl.MarketingPagesCrawled)
	}
	fmt.Fprintf(&b, "- Pages analyzed: %d\n", result.PagesUsed)
	fmt.Fprintf(&b, "- Chunks indexed: %d\n", result.Chunks)
	if result.FromCache {
		b.WriteString("- Crawl served from cache\n")
	}
	fmt.Fprintf(&b, "- Elapsed: %s\n\n", result.Elapsed.Round(10*time.Millisecond))

	// Pillar table.
	if result.Score != nil {
		b.WriteString("## Pillars\n")
		for _, p := range result.Score.Pillars {
			if !p.Evaluated {
				fmt.Fprintf(&b, "- %-20s not evaluated: %s\n", p.Name, p.Explanation)
				continue
			}
			fmt.Fprintf(&b, "- %-20s %6.1f / 100  (%.1f of %.0f pts, %s)\n",
				p.Name, p.RawScore, p.PointsEarned, p.MaxPoints, p.Level)
		}
		b.WriteString("\n")
	}

	// Simulation.
	if result.Simulation != nil {
		sim := result.Simulation
		b.WriteString("## Simulation\n")
		fmt.Fprintf(&b, "- Questions: %d answered, %d partial, %d unanswered of %d\n",
			sim.QuestionsAnswered, sim.QuestionsPartial, sim.QuestionsUnanswered, sim.TotalQuestions())
		fmt.Fprintf(&b, "- Retrieval score: %.1f\n", sim.OverallScore)
		fmt.Fprintf(&b, "- Coverage score: %.1f\n\n", sim.CoverageScore)
	}

	// Issues and fixes.
	if result.Score != nil && len(result.Score.CriticalIssues) > 0 {
		b.WriteString("## Critical Issues\n")
		for _, is := range result.Score.CriticalIssues {
			fmt.Fprintf(&b, "- [%s] %s\n", is.Pillar, is.Message)
		}
		b.WriteString("\n")
	}
	if result.Score != nil && len(result.Score.Fixes) > 0 {
		b.WriteString("## Recommended Fixes\n")
		for i, fix := range result.Score.Fixes {
			fmt.Fprintf(&b, "%d. %s\n", i+1, fix)
		}
		b.WriteString("\n")
	}

	// Full math trace.
	if result.Score != nil {
		b.WriteString("## The Math\n```\n")
		b.WriteString(score.ShowTheMath(result.Score))
		b.WriteString("```\n")
	}

	return b.String()
}

// FormatRunList renders runs as an aligned text table.
func FormatRunList(runs []model.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s  %-12s  %-18s  %-7s  %s\n", "RUN", "TYPE", "STATUS", "SCORE", "CREATED")
	for _, r := range runs {
		scoreText := "-"
		if r.Score != nil {
			scoreText = fmt.Sprintf("%.1f %s", r.Score.TotalScore, r.Score.Grade)
		}
		fmt.Fprintf(&b, "%-36s  %-12s  %-18s  %-7s  %s\n",
			r.ID, r.RunType, r.Status, scoreText, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}
