package domain

import "time"

const (
	DefaultTopK     = 5
	MaxTopK         = 20
	DefaultMinScore = 0.3
)

// RetrievalQuery carries the parameters of a single retrieval call.
// It is immutable for the lifetime of that call.
type RetrievalQuery struct {
	Text     string
	TopK     int
	MinScore float64
}

// RawIndexResult is the provider-shaped response of a vector index search.
// Its shape differs between index client versions; it is consumed exactly
// once by normalization and discarded.
type RawIndexResult = any

// RetrievedContext is the canonical form of one index hit. Payload is
// always a mapping after normalization; when the provider returned
// something else, the payload degrades to an empty map and PayloadDegraded
// records the coercion.
type RetrievedContext struct {
	Score           float64        `json:"score"`
	Payload         map[string]any `json:"payload"`
	PayloadDegraded bool           `json:"-"`

	URL            string         `json:"url"`
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	Headings       []string       `json:"headings"`
	ChunkIndex     int            `json:"chunk_index"`
	SourceDocument string         `json:"source_document"`
	Metadata       map[string]any `json:"metadata"`
}

// ValidationReport describes structural problems found in a retrieved
// payload. It is diagnostic only and never affects ranking or filtering.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// RankedContext is the externally visible retrieval unit: a canonical hit
// plus its validation report and the query-time measurement.
type RankedContext struct {
	RetrievedContext
	Report    ValidationReport `json:"metadata_validation"`
	QueryTime time.Duration    `json:"query_time"`
}

// RetrievalQuality aggregates score statistics over a retrieved set.
// Observability only.
type RetrievalQuality struct {
	ContextCount       int     `json:"context_count"`
	HasContent         bool    `json:"has_content"`
	AvgScore           float64 `json:"avg_score"`
	MinScore           float64 `json:"min_score"`
	MaxScore           float64 `json:"max_score"`
	ScoreVariance      float64 `json:"score_variance"`
	TotalContentLength int     `json:"total_content_length"`
	HasValidSources    bool    `json:"has_valid_sources"`
}

// IndexStats reports the state of the backing collection for health checks.
type IndexStats struct {
	CollectionExists  bool   `json:"collection_exists"`
	VectorCount       int64  `json:"vector_count"`
	SampleSearchWorks bool   `json:"sample_search_works"`
	Error             string `json:"error,omitempty"`
}

// Answer is the final response of the question-answering pipeline.
type Answer struct {
	Query          string   `json:"query"`
	Text           string   `json:"answer"`
	Confidence     float64  `json:"confidence"`
	Sources        []string `json:"sources"`
	ProcessingTime float64  `json:"processing_time"`
}
