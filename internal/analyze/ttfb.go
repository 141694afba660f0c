package analyze

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/findablehq/findable-cli/internal/crawl"
	"github.com/findablehq/findable-cli/internal/model"
)

// TTFB thresholds in milliseconds.
const (
	ttfbExcellent  = 200
	ttfbGood       = 500
	ttfbAcceptable = 1000
	ttfbPoor       = 1500
	ttfbCritical   = 2000
)

// TTFBResult reports server responsiveness.
type TTFBResult struct {
	Score        float64     `json:"score"`
	Level        model.Level `json:"level"`
	Milliseconds int64       `json:"milliseconds"`
	Rating       string      `json:"rating"`
	Measured     bool        `json:"measured"`
	Issues       []string    `json:"issues,omitempty"`
}

// MeasureTTFB probes the site's time to first byte and scores it on a
// piecewise-linear scale. An unreachable site scores zero and reports
// the failure as an issue.
func MeasureTTFB(ctx context.Context, fetcher *crawl.Fetcher, siteURL string) TTFBResult {
	r := TTFBResult{}

	ttfb, err := fetcher.ProbeTTFB(ctx, siteURL)
	if err != nil {
		zap.L().Debug("ttfb probe failed",
			zap.String("url", siteURL),
			zap.Error(err),
		)
		r.Level = model.LevelLimited
		r.Rating = "unreachable"
		r.Issues = append(r.Issues, "could not measure time to first byte")
		return r
	}

	r.Measured = true
	r.Milliseconds = ttfb.Milliseconds()
	r.Score = ScoreTTFB(ttfb)
	r.Rating = rateTTFB(r.Milliseconds)
	r.Level = model.LevelForScore(r.Score)

	if r.Milliseconds >= ttfbPoor {
		r.Issues = append(r.Issues, "slow server response; AI crawlers deprioritize slow origins")
	}
	return r
}

// ScoreTTFB maps a latency to 0..100, linear within each threshold
// band.
func ScoreTTFB(d time.Duration) float64 {
	ms := float64(d.Milliseconds())
	switch {
	case ms < ttfbExcellent:
		return 100
	case ms < ttfbGood:
		// 100 down to 80 across 200-500ms.
		return 100 - 20*(ms-ttfbExcellent)/(ttfbGood-ttfbExcellent)
	case ms < ttfbAcceptable:
		// 80 down to 60.
		return 80 - 20*(ms-ttfbGood)/(ttfbAcceptable-ttfbGood)
	case ms < ttfbPoor:
		// 60 down to 40.
		return 60 - 20*(ms-ttfbAcceptable)/(ttfbPoor-ttfbAcceptable)
	case ms < ttfbCritical:
		// 40 down to 20.
		return 40 - 20*(ms-ttfbPoor)/(ttfbCritical-ttfbPoor)
	default:
		return 10
	}
}

func rateTTFB(ms int64) string {
	switch {
	case ms < ttfbExcellent:
		return "excellent"
	case ms < ttfbGood:
		return "good"
	case ms < ttfbAcceptable:
		return "acceptable"
	case ms < ttfbPoor:
		return "poor"
	default:
		return "critical"
	}
}
