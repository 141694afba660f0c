package validate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/model"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]model.CalibrationSample
	fail    bool
}

func (s *recordingSink) AppendSamples(_ context.Context, samples []model.CalibrationSample) error {
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, samples)
	return nil
}

func (s *recordingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestCollectBatch_AppendsPerSite(t *testing.T) {
	collector := NewCollector(StaticEngine{Response: "acme.com and widgetco.io both work"})
	sink := &recordingSink{}

	reqs := []GroundTruthRequest{
		{SiteID: "site-a", RunID: "run-a", Domain: "acme.com", Results: groundTruthResults()},
		{SiteID: "site-b", RunID: "run-b", Domain: "widgetco.io", Results: groundTruthResults()[:1]},
	}

	result, err := CollectBatch(context.Background(), collector, sink, reqs, config.ValidationConfig{MaxConcurrentSites: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sites)
	assert.Equal(t, 3, result.Samples)
	assert.Equal(t, 0, result.Failures)
	assert.Equal(t, 3, sink.total())
	assert.Len(t, sink.batches, 2)
}

func TestCollectBatch_OneSiteFailingDoesNotStopOthers(t *testing.T) {
	collector := NewCollector(StaticEngine{Response: "acme.com"})
	sink := &recordingSink{}

	reqs := []GroundTruthRequest{
		{SiteID: "site-a", Domain: "", Results: groundTruthResults()},
		{SiteID: "site-b", Domain: "acme.com", Results: groundTruthResults()},
	}

	result, err := CollectBatch(context.Background(), collector, sink, reqs, config.ValidationConfig{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failures)
	assert.Equal(t, 2, result.Samples)
	assert.Equal(t, 2, sink.total())
}

func TestCollectBatch_SinkFailureCountsAsFailure(t *testing.T) {
	collector := NewCollector(StaticEngine{Response: "acme.com"})
	sink := &recordingSink{fail: true}

	reqs := []GroundTruthRequest{
		{SiteID: "site-a", Domain: "acme.com", Results: groundTruthResults()},
	}

	result, err := CollectBatch(context.Background(), collector, sink, reqs, config.ValidationConfig{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failures)
	assert.Equal(t, 0, result.Samples)
}

func TestCollectBatch_Empty(t *testing.T) {
	collector := NewCollector(StaticEngine{Response: "anything"})

	result, err := CollectBatch(context.Background(), collector, &recordingSink{}, nil, config.ValidationConfig{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Sites)
	assert.Equal(t, 0, result.Samples)
}
