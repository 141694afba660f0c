package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchItem is one site's outcome within a batch audit.
type BatchItem struct {
	URL    string
	Result *AuditResult
	Err    error
}

// BatchResult summarizes a batch of audits.
type BatchResult struct {
	Items     []BatchItem
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// RunBatch audits several sites concurrently, bounded by maxConcurrent
// (default 3). One site failing does not stop the others; the error
// return is reserved for batch-level cancellation.
func (p *Pipeline) RunBatch(ctx context.Context, urls []string, maxConcurrent int, base AuditRequest) (*BatchResult, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	start := time.Now()
	items := make([]BatchItem, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, u := range urls {
		g.Go(func() error {
			req := base
			req.URL = u
			result, err := p.Run(gctx, req)
			items[i] = BatchItem{URL: u, Result: result, Err: err}
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: batch cancelled")
	}

	batch := &BatchResult{Items: items, Elapsed: time.Since(start)}
	for _, item := range items {
		if item.Err != nil {
			batch.Failed++
		} else {
			batch.Succeeded++
		}
	}
	zap.L().Info("pipeline: batch complete",
		zap.Int("sites", len(urls)),
		zap.Int("succeeded", batch.Succeeded),
		zap.Int("failed", batch.Failed),
		zap.Duration("elapsed", batch.Elapsed))
	return batch, nil
}
