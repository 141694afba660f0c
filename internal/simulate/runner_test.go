package simulate

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/index"
	"github.com/findablehq/findable-cli/internal/model"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	embedder := index.NewEmbedder(index.NewHashModel(128))
	retriever := index.NewRetriever(embedder, 0.65, 0.35)
	chunks := []model.Chunk{
		{
			ChunkID:        "p1-0",
			PageID:         "p1",
			Content:        "Acme pricing starts at 29 dollars per month with a free trial plan for every tier.",
			HeadingContext: "Pricing",
			PositionRatio:  0.1,
			SourceURL:      "https://acme.com/pricing",
		},
		{
			ChunkID:        "p2-0",
			PageID:         "p2",
			Content:        "To get started with Acme, sign up for an account and install the CLI.",
			HeadingContext: "Getting Started",
			PositionRatio:  0.2,
			SourceURL:      "https://acme.com/docs/start",
		},
		{
			ChunkID:        "p3-0",
			PageID:         "p3",
			Content:        "Acme is a customer data platform for mid-market retail teams.",
			HeadingContext: "About",
			PositionRatio:  0.3,
			SourceURL:      "https://acme.com/about",
		},
	}
	require.NoError(t, retriever.Add(chunks))

	return NewRunner(retriever, model.DefaultCalibrationConfig(),
		config.SimulateConfig{Concurrency: 2, RelevanceFloor: 0.2}, 3, nil)
}

func TestRun_EmptyBank(t *testing.T) {
	r := newTestRunner(t)
	out, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out.TotalQuestions())
}

func TestRun_AggregatesResults(t *testing.T) {
	r := newTestRunner(t)
	questions := []model.Question{
		{ID: "offerings-01", Text: "How much does Acme cost?", Category: model.CategoryOfferings,
			Difficulty: model.DifficultyMedium, ExpectedSignals: []string{"pricing", "plan"}},
		{ID: "how_to-01", Text: "How do I get started with Acme?", Category: model.CategoryHowTo,
			Difficulty: model.DifficultyEasy, ExpectedSignals: []string{"get started", "sign up"}},
		{ID: "identity-01", Text: "What is Acme?", Category: model.CategoryIdentity,
			Difficulty: model.DifficultyEasy, ExpectedSignals: []string{"acme"}},
	}

	out, err := r.Run(context.Background(), questions)
	require.NoError(t, err)

	assert.Equal(t, 3, out.TotalQuestions())
	require.Len(t, out.QuestionResults, 3)

	// Results come back sorted by question id regardless of scheduling.
	assert.True(t, sort.SliceIsSorted(out.QuestionResults, func(i, j int) bool {
		return out.QuestionResults[i].QuestionID < out.QuestionResults[j].QuestionID
	}))

	for _, qr := range out.QuestionResults {
		assert.GreaterOrEqual(t, qr.Score, 0.0)
		assert.LessOrEqual(t, qr.Score, 1.0)
		assert.Equal(t, 3, qr.Context.TotalChunks)
	}
	assert.GreaterOrEqual(t, out.OverallScore, 0.0)
	assert.LessOrEqual(t, out.OverallScore, 100.0)
	assert.GreaterOrEqual(t, out.CoverageScore, 0.0)
}

func TestRun_Deterministic(t *testing.T) {
	questions := GenerateQuestions(SiteContext{CompanyName: "Acme"}, 12)

	first, err := newTestRunner(t).Run(context.Background(), questions)
	require.NoError(t, err)
	second, err := newTestRunner(t).Run(context.Background(), questions)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(nil, model.DefaultCalibrationConfig(), config.SimulateConfig{}, 0, nil)
	assert.Equal(t, 5, r.topK)
	assert.Equal(t, 4, r.cfg.Concurrency)
	assert.InDelta(t, 0.2, r.cfg.RelevanceFloor, 1e-9)
	assert.NotNil(t, r.metrics)
}

func TestRelevanceScore(t *testing.T) {
	assert.InDelta(t, 0.0, relevanceScore(nil), 1e-9)
	chunks := []model.RetrievedChunk{{Score: 0.8}, {Score: 0.4}}
	assert.InDelta(t, 0.6, relevanceScore(chunks), 1e-9)
}

func TestSignalScore(t *testing.T) {
	chunks := []model.RetrievedChunk{
		{Content: "Pricing starts at a monthly PLAN.", HeadingContext: "Pricing"},
	}

	// No expected signals means the component is a free pass.
	score, found := signalScore(nil, chunks, 0.5)
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Equal(t, 0, found)

	// Case-insensitive matching across content and heading context.
	score, found = signalScore([]string{"pricing", "plan"}, chunks, 0.5)
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Equal(t, 2, found)

	// Below the match threshold the fraction zeroes out.
	score, found = signalScore([]string{"pricing", "trial", "refund"}, chunks, 0.5)
	assert.InDelta(t, 0.0, score, 1e-9)
	assert.Equal(t, 1, found)
}

func TestConfidenceScore(t *testing.T) {
	conf, v := confidenceScore(nil)
	assert.Equal(t, model.ConfidenceLow, conf)
	assert.InDelta(t, 0.0, v, 1e-9)

	conf, v = confidenceScore([]model.RetrievedChunk{{Score: 0.8, HeadingContext: "Pricing"}})
	assert.Equal(t, model.ConfidenceHigh, conf)
	assert.InDelta(t, 1.0, v, 1e-9)

	// A strong score without heading context only rates medium.
	conf, _ = confidenceScore([]model.RetrievedChunk{{Score: 0.8}})
	assert.Equal(t, model.ConfidenceMedium, conf)

	conf, v = confidenceScore([]model.RetrievedChunk{{Score: 0.3, HeadingContext: "Pricing"}})
	assert.Equal(t, model.ConfidenceLow, conf)
	assert.InDelta(t, 0.2, v, 1e-9)
}
