package domain

import "time"

type PageStatus string

const (
	PageQueued   PageStatus = "queued"
	PageIndexing PageStatus = "indexing"
	PageIndexed  PageStatus = "indexed"
	PageFailed   PageStatus = "failed"
)

// SourcePage is one corpus page tracked through the indexing pipeline.
type SourcePage struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title,omitempty"`
	Section     string     `json:"section,omitempty"`
	StoragePath string     `json:"storage_path,omitempty"`
	ChunkCount  int        `json:"chunk_count"`
	Status      PageStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PageContent is the extracted text of a fetched page.
type PageContent struct {
	URL      string
	Title    string
	Headings []string
	Text     string
}

// Chunk is one bounded span of page text destined for the vector index.
type Chunk struct {
	Index          int
	Content        string
	URL            string
	Title          string
	Headings       []string
	SourceDocument string
	Metadata       map[string]any
}

// EmbeddedChunk pairs a chunk with its embedding vector.
type EmbeddedChunk struct {
	Chunk
	Vector []float32
}
