package validate

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/model"
	"github.com/findablehq/findable-cli/internal/resilience"
)

// SampleSink receives collected samples. store.Store satisfies it.
type SampleSink interface {
	AppendSamples(ctx context.Context, samples []model.CalibrationSample) error
}

// BatchResult summarizes one batch of ground-truth collection.
type BatchResult struct {
	Sites    int
	Samples  int
	Failures int
	Elapsed  time.Duration
}

// CollectBatch runs ground-truth collection for several sites at once,
// bounded by cfg.MaxConcurrentSites (default 3). Each site's samples
// are appended as soon as its collection finishes; one site failing
// does not stop the others.
func CollectBatch(ctx context.Context, collector *Collector, sink SampleSink, reqs []GroundTruthRequest, cfg config.ValidationConfig) (*BatchResult, error) {
	if len(reqs) == 0 {
		return &BatchResult{}, nil
	}
	maxSites := cfg.MaxConcurrentSites
	if maxSites <= 0 {
		maxSites = 3
	}

	start := time.Now()
	result := &BatchResult{Sites: len(reqs)}
	results := make([]int, len(reqs))
	failures := make([]error, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSites)
	for i, req := range reqs {
		g.Go(func() error {
			samples, err := collector.CollectGroundTruth(gctx, req)
			if err != nil {
				failures[i] = err
				zap.L().Error("ground truth collection failed",
					zap.String("site_id", req.SiteID), zap.Error(err))
				return nil
			}
			if err := resilience.Do(gctx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
				return sink.AppendSamples(ctx, samples)
			}); err != nil {
				failures[i] = eris.Wrap(err, "validate: append samples")
				return nil
			}
			results[i] = len(samples)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "validate: batch")
	}

	for i := range reqs {
		if failures[i] != nil {
			result.Failures++
			continue
		}
		result.Samples += results[i]
	}
	result.Elapsed = time.Since(start)

	zap.L().Info("ground truth batch complete",
		zap.Int("sites", result.Sites),
		zap.Int("samples", result.Samples),
		zap.Int("failures", result.Failures),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}
