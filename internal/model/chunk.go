package model

import "time"

// ChunkType describes the dominant structure of a chunk's source content.
type ChunkType string

const (
	ChunkTypeText  ChunkType = "text"
	ChunkTypeList  ChunkType = "list"
	ChunkTypeTable ChunkType = "table"
	ChunkTypeCode  ChunkType = "code"
	ChunkTypeFAQ   ChunkType = "faq"
)

// Chunk is one retrieval unit cut from an extracted page. Chunks of a
// page are in document order and position_ratio never decreases.
type Chunk struct {
	ChunkID        string    `json:"chunk_id"`
	PageID         string    `json:"page_id"`
	Content        string    `json:"content"`
	HeadingContext string    `json:"heading_context,omitempty"`
	ChunkType      ChunkType `json:"chunk_type"`
	ChunkIndex     int       `json:"chunk_index"`
	PositionRatio  float64   `json:"position_ratio"`
	SourceURL      string    `json:"source_url,omitempty"`
	PageTitle      string    `json:"page_title,omitempty"`
}

// StoredEmbedding is a persisted chunk vector. (ContentHash, SiteID) is
// unique; re-embedding identical content upserts in place.
type StoredEmbedding struct {
	ID          string    `json:"id"`
	ChunkID     string    `json:"chunk_id"`
	PageID      string    `json:"page_id"`
	SiteID      string    `json:"site_id"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	ModelName   string    `json:"model_name"`
	Dimensions  int       `json:"dimensions"`
	CreatedAt   time.Time `json:"created_at"`
}

// RetrievedChunk is one hybrid-retrieval hit with its blended score.
type RetrievedChunk struct {
	DocID          string  `json:"doc_id"`
	Content        string  `json:"content"`
	Score          float64 `json:"score"`
	Distance       float64 `json:"distance"`
	HeadingContext string  `json:"heading_context,omitempty"`
	SourceURL      string  `json:"source_url,omitempty"`
	PageTitle      string  `json:"page_title,omitempty"`
	PositionRatio  float64 `json:"position_ratio"`
}
