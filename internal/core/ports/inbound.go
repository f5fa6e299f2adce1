package ports

import (
	"context"

	"github.com/imelnikov/bookrag/internal/core/domain"
)

// ContextRetriever is the inbound contract of the retrieval pipeline.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query domain.RetrievalQuery) ([]domain.RankedContext, error)
}

// QuestionAnswerer is the inbound contract for grounded answer generation.
type QuestionAnswerer interface {
	AnswerQuestion(ctx context.Context, question string, topK int, minScore, temperature float64) (*domain.Answer, error)
}

// CorpusIngestor triggers re-indexing of the corpus manifest.
type CorpusIngestor interface {
	Reindex(ctx context.Context) (int, error)
}

// PageIndexer processes one queued corpus page end to end.
type PageIndexer interface {
	IndexPage(ctx context.Context, url string) error
}
