// Package index builds the per-site retrieval index: chunking,
// deterministic embedding, and hybrid vector/lexical retrieval.
package index

import (
	"fmt"
	"strings"

	"github.com/findablehq/findable-cli/internal/model"
)

// Chunker cuts extracted markdown into retrieval units on paragraph
// boundaries.
type Chunker struct {
	targetChars int
	maxChars    int
}

// NewChunker returns a chunker with the given soft target and hard
// max sizes in characters. Non-positive values fall back to 800/1600.
func NewChunker(targetChars, maxChars int) *Chunker {
	if targetChars <= 0 {
		targetChars = 800
	}
	if maxChars < targetChars {
		maxChars = targetChars * 2
	}
	return &Chunker{targetChars: targetChars, maxChars: maxChars}
}

// Chunk splits a page's markdown into chunks. Paragraphs accumulate
// until the soft target; a single paragraph over the hard max is split
// on sentence-ish boundaries. Every chunk carries the nearest
// preceding heading chain and a strictly increasing position ratio.
func (c *Chunker) Chunk(page *model.ExtractedPage, pageID string) []model.Chunk {
	source := page.Markdown
	if source == "" {
		source = page.MainContent
	}

	blocks := splitBlocks(source)
	if len(blocks) == 0 {
		return nil
	}

	totalChars := len(source)

	var chunks []model.Chunk
	var headings headingChain
	var buf strings.Builder
	bufStart := 0
	bufType := model.ChunkTypeText

	flush := func() {
		content := strings.TrimSpace(buf.String())
		if content == "" {
			buf.Reset()
			return
		}
		chunks = append(chunks, model.Chunk{
			ChunkID:        fmt.Sprintf("%s-%d", pageID, len(chunks)),
			PageID:         pageID,
			Content:        content,
			HeadingContext: headings.String(),
			ChunkType:      bufType,
			ChunkIndex:     len(chunks),
			PositionRatio:  positionRatio(bufStart, totalChars, len(chunks)),
			SourceURL:      page.URL,
			PageTitle:      page.Title,
		})
		buf.Reset()
		bufType = model.ChunkTypeText
	}

	for _, b := range blocks {
		if level, text, ok := parseHeading(b.text); ok {
			flush()
			headings.push(level, text)
			bufStart = b.offset
			continue
		}

		bt := classifyBlock(b.text)
		if buf.Len() == 0 {
			bufStart = b.offset
			bufType = bt
		} else if bt != bufType {
			flush()
			bufStart = b.offset
			bufType = bt
		}

		if len(b.text) > c.maxChars {
			flush()
			bufStart = b.offset
			for _, piece := range splitOversize(b.text, c.maxChars) {
				buf.WriteString(piece)
				bufType = bt
				flush()
				bufStart += len(piece)
			}
			continue
		}

		if buf.Len() > 0 && buf.Len()+len(b.text) > c.targetChars {
			flush()
			bufStart = b.offset
			bufType = bt
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(b.text)
	}
	flush()

	return chunks
}

// positionRatio keeps the ratio strictly increasing even when two
// chunks start at the same offset after a flush.
func positionRatio(offset, total, chunkIndex int) float64 {
	r := float64(offset) / float64(total)
	r += float64(chunkIndex) * 1e-9
	if r > 1 {
		r = 1
	}
	return r
}

type block struct {
	text   string
	offset int
}

// splitBlocks cuts markdown into blank-line separated blocks,
// preserving each block's character offset in the source.
func splitBlocks(md string) []block {
	var out []block
	offset := 0
	for _, raw := range strings.Split(md, "\n\n") {
		text := strings.TrimSpace(raw)
		if text != "" {
			out = append(out, block{text: text, offset: offset})
		}
		offset += len(raw) + 2
	}
	return out
}

// parseHeading recognizes ATX markdown headings.
func parseHeading(text string) (level int, heading string, ok bool) {
	if !strings.HasPrefix(text, "#") {
		return 0, "", false
	}
	i := 0
	for i < len(text) && text[i] == '#' {
		i++
	}
	if i == 0 || i > 6 || i >= len(text) || text[i] != ' ' {
		return 0, "", false
	}
	h := strings.TrimSpace(text[i:])
	if h == "" {
		return 0, "", false
	}
	return i, h, true
}

// classifyBlock tags the dominant markdown structure of a block.
func classifyBlock(text string) model.ChunkType {
	switch {
	case strings.HasPrefix(text, "```"):
		return model.ChunkTypeCode
	case strings.HasPrefix(text, "|") && strings.Contains(text, "|\n"):
		return model.ChunkTypeTable
	case strings.HasPrefix(text, "- ") || strings.HasPrefix(text, "* ") ||
		strings.HasPrefix(text, "1. "):
		return model.ChunkTypeList
	default:
		return model.ChunkTypeText
	}
}

// splitOversize cuts a paragraph exceeding the hard max on sentence
// boundaries where possible, plain char boundaries otherwise.
func splitOversize(text string, maxChars int) []string {
	var out []string
	for len(text) > maxChars {
		cut := maxChars
		if i := strings.LastIndexAny(text[:maxChars], ".!?"); i > maxChars/2 {
			cut = i + 1
		}
		out = append(out, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// headingChain tracks the current markdown heading path.
type headingChain struct {
	parts []string // parts[i] is the active heading at level i+1
}

func (h *headingChain) push(level int, text string) {
	for len(h.parts) < level {
		h.parts = append(h.parts, "")
	}
	h.parts = h.parts[:level]
	h.parts[level-1] = text
}

// String joins the active chain, skipping unset levels.
func (h *headingChain) String() string {
	var set []string
	for _, p := range h.parts {
		if p != "" {
			set = append(set, p)
		}
	}
	return strings.Join(set, " > ")
}
