package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findablehq/findable-cli/internal/model"
)

func mdPage(markdown string) *model.ExtractedPage {
	return &model.ExtractedPage{
		URL:      "https://example.com/docs",
		Title:    "Docs",
		Markdown: markdown,
	}
}

func TestChunker_HeadingContextChain(t *testing.T) {
	md := `# Getting Started

Install the widget CLI with your package manager of choice.

## Configuration

Set the API key in the config file before the first run.

### Advanced

Tune the worker pool size for large sites.

## Troubleshooting

Check the log output when a run fails.`

	chunks := NewChunker(800, 1600).Chunk(mdPage(md), "page-1")
	require.Len(t, chunks, 4)

	assert.Equal(t, "Getting Started", chunks[0].HeadingContext)
	assert.Equal(t, "Getting Started > Configuration", chunks[1].HeadingContext)
	assert.Equal(t, "Getting Started > Configuration > Advanced", chunks[2].HeadingContext)
	// A later H2 truncates the deeper chain.
	assert.Equal(t, "Getting Started > Troubleshooting", chunks[3].HeadingContext)
}

func TestChunker_PositionRatiosStrictlyIncrease(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString("## Section\n\nSome paragraph content that fills the chunk with words.\n\n")
	}

	chunks := NewChunker(100, 200).Chunk(mdPage(b.String()), "page-1")
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].PositionRatio, chunks[i-1].PositionRatio,
			"chunk %d ratio must exceed chunk %d", i, i-1)
	}
	assert.LessOrEqual(t, chunks[len(chunks)-1].PositionRatio, 1.0)
}

func TestChunker_AccumulatesToTarget(t *testing.T) {
	md := "First short paragraph.\n\nSecond short paragraph.\n\nThird short paragraph."
	chunks := NewChunker(800, 1600).Chunk(mdPage(md), "page-1")

	require.Len(t, chunks, 1, "short paragraphs merge into one chunk")
	assert.Contains(t, chunks[0].Content, "First short paragraph.")
	assert.Contains(t, chunks[0].Content, "Third short paragraph.")
}

func TestChunker_SplitsOversizeParagraph(t *testing.T) {
	sentence := "This sentence repeats to build an oversized paragraph for the splitter. "
	md := strings.Repeat(sentence, 40) // ~2900 chars, no blank lines

	chunks := NewChunker(400, 800).Chunk(mdPage(md), "page-1")
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Content), 800)
	}
}

func TestChunker_ChunkTypes(t *testing.T) {
	md := "A plain paragraph of prose.\n\n- first item\n- second item\n\n```\ncode sample\n```"
	chunks := NewChunker(800, 1600).Chunk(mdPage(md), "page-1")

	require.Len(t, chunks, 3)
	assert.Equal(t, model.ChunkTypeText, chunks[0].ChunkType)
	assert.Equal(t, model.ChunkTypeList, chunks[1].ChunkType)
	assert.Equal(t, model.ChunkTypeCode, chunks[2].ChunkType)
}

func TestChunker_IDsAndIndexes(t *testing.T) {
	md := "# Title\n\nFirst paragraph here with some words.\n\n- a list\n- of items"
	chunks := NewChunker(800, 1600).Chunk(mdPage(md), "page-9")

	require.Len(t, chunks, 2)
	assert.Equal(t, "page-9-0", chunks[0].ChunkID)
	assert.Equal(t, "page-9-1", chunks[1].ChunkID)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.Equal(t, "https://example.com/docs", chunks[0].SourceURL)
	assert.Equal(t, "Docs", chunks[0].PageTitle)
}

func TestChunker_EmptyPage(t *testing.T) {
	assert.Nil(t, NewChunker(800, 1600).Chunk(mdPage(""), "page-1"))
	assert.Nil(t, NewChunker(800, 1600).Chunk(mdPage("   \n\n   "), "page-1"))
}

func TestChunker_FallsBackToMainContent(t *testing.T) {
	page := &model.ExtractedPage{
		URL:         "https://example.com/",
		MainContent: "Plain text content when markdown rendering produced nothing.",
	}
	chunks := NewChunker(800, 1600).Chunk(page, "page-1")
	require.Len(t, chunks, 1)
	assert.Equal(t, page.MainContent, chunks[0].Content)
}
