package ports

import (
	"context"
	"io"

	"github.com/imelnikov/bookrag/internal/core/domain"
)

// Embedder builds fixed-length vectors for queries and corpus chunks.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex searches and maintains the backing vector collection.
// Search returns the provider-shaped response untouched; the retrieval
// core normalizes it.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, limit int) (domain.RawIndexResult, error)
	UpsertChunks(ctx context.Context, chunks []domain.EmbeddedChunk) error
	Stats(ctx context.Context) (domain.IndexStats, error)
}

// AnswerGenerator creates the final user-facing answer from retrieved context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, contexts []domain.RankedContext, temperature float64) (string, error)
	GenerateFallback(ctx context.Context, question string) (string, error)
}

// PageFetcher downloads one corpus page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ContentExtractor turns raw page bytes into extracted text.
type ContentExtractor interface {
	Extract(url string, raw []byte) (domain.PageContent, error)
}

// Chunker splits extracted text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}

// PageRepository persists corpus page state.
type PageRepository interface {
	Upsert(ctx context.Context, page *domain.SourcePage) error
	GetByURL(ctx context.Context, url string) (*domain.SourcePage, error)
	UpdateStatus(ctx context.Context, url string, status domain.PageStatus, chunkCount int, errMessage string) error
	CountByStatus(ctx context.Context) (map[domain.PageStatus]int, error)
}

// ObjectStorage keeps raw page snapshots for reproducible re-indexing.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
}

// MessageQueue publishes/consumes page indexing events.
type MessageQueue interface {
	PublishPageQueued(ctx context.Context, url string) error
	SubscribePageQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// CorpusManifest lists the pages of the textbook corpus.
type CorpusManifest interface {
	Pages() []ManifestPage
}

type ManifestPage struct {
	URL     string
	Section string
}
