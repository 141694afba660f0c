package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findablehq/findable-cli/internal/model"
)

func testChunks() []model.Chunk {
	return []model.Chunk{
		{
			ChunkID:        "p1-0",
			PageID:         "p1",
			Content:        "Our pricing starts at ten dollars per month for the starter plan.",
			HeadingContext: "Pricing",
			SourceURL:      "https://example.com/pricing",
			PositionRatio:  0.0,
		},
		{
			ChunkID:        "p2-0",
			PageID:         "p2",
			Content:        "Install the CLI and run the init command to configure your project.",
			HeadingContext: "Getting Started > Installation",
			SourceURL:      "https://example.com/docs/install",
			PositionRatio:  0.1,
		},
		{
			ChunkID:        "p3-0",
			PageID:         "p3",
			Content:        "The company was founded in 2019 and is headquartered in Berlin.",
			HeadingContext: "About",
			SourceURL:      "https://example.com/about",
			PositionRatio:  0.2,
		},
	}
}

func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()
	r := NewRetriever(NewEmbedder(NewHashModel(256)), 0.65, 0.35)
	require.NoError(t, r.Add(testChunks()))
	return r
}

func TestRetriever_RanksRelevantChunkFirst(t *testing.T) {
	r := newTestRetriever(t)

	results, err := r.Retrieve("how much does the starter plan pricing cost", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "p1-0", results[0].DocID)
}

func TestRetriever_TopKBounds(t *testing.T) {
	r := newTestRetriever(t)

	results, err := r.Retrieve("install the cli", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// k larger than the index returns everything.
	results, err = r.Retrieve("install the cli", 50)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRetriever_EmptyIndex(t *testing.T) {
	r := NewRetriever(NewEmbedder(NewHashModel(64)), 0.65, 0.35)
	results, err := r.Retrieve("anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetriever_UpsertByContentHash(t *testing.T) {
	r := newTestRetriever(t)
	require.Equal(t, 3, r.Len())

	// Same content, different chunk id: replaces rather than appends.
	dup := testChunks()[0]
	dup.ChunkID = "p1-0-v2"
	require.NoError(t, r.Add([]model.Chunk{dup}))
	assert.Equal(t, 3, r.Len())

	results, err := r.Retrieve("starter plan pricing", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1-0-v2", results[0].DocID)
}

func TestRetriever_ScoresWithinUnitRange(t *testing.T) {
	r := newTestRetriever(t)

	results, err := r.Retrieve("berlin headquarters founding", 3)
	require.NoError(t, err)
	for _, res := range results {
		assert.GreaterOrEqual(t, res.Score, 0.0)
		assert.LessOrEqual(t, res.Score, 1.0)
	}
}

func TestRetriever_EmbeddingsForPersistence(t *testing.T) {
	r := newTestRetriever(t)

	rows := r.Embeddings("site-1")
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, "site-1", row.SiteID)
		assert.Equal(t, "hash-v1", row.ModelName)
		assert.Equal(t, 256, row.Dimensions)
		assert.Len(t, row.Embedding, 256)
		assert.Equal(t, ContentHash(row.Content), row.ContentHash)
	}
}

func TestHeadingMatches(t *testing.T) {
	assert.True(t, headingMatches([]string{"pricing"}, "Pricing > Plans"))
	assert.False(t, headingMatches([]string{"install"}, "Pricing > Plans"))
	assert.False(t, headingMatches([]string{"anything"}, ""))
}
