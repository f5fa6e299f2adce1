package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/imelnikov/bookrag/internal/core/domain"
	"github.com/imelnikov/bookrag/internal/core/ports"
)

// Embedding providers reject over-long inputs; the query is cut here, at
// the caller, never inside the embedder.
const maxEmbedInputChars = 2048

// RetrieveUseCase is the retrieval pipeline: embed the query, search the
// vector index, normalize the provider response, apply lexical boosting,
// validate payload metadata, then filter, sort and truncate.
//
// Each call owns its candidate list and reports; the use case itself holds
// only read-only handles and is safe for concurrent use.
type RetrieveUseCase struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	logger   *slog.Logger
}

func NewRetrieveUseCase(embedder ports.Embedder, index ports.VectorIndex, logger *slog.Logger) *RetrieveUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieveUseCase{
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

func (uc *RetrieveUseCase) Retrieve(ctx context.Context, query domain.RetrievalQuery) ([]domain.RankedContext, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}
	start := time.Now()

	vector, err := uc.embedder.EmbedQuery(ctx, truncateQuery(query.Text))
	if err != nil {
		if domain.IsKind(err, domain.ErrEmbedding) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrEmbedding, "embed query", err)
	}

	// Over-fetch so boosting can reorder without starving the final top-k.
	raw, err := uc.index.Search(ctx, vector, 2*query.TopK)
	if err != nil {
		if domain.IsKind(err, domain.ErrIndexShape) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrRetrieval, "index search", err)
	}

	candidates, err := normalizeResponse(raw)
	if err != nil {
		return nil, err
	}
	queryTime := time.Since(start)

	terms := queryTerms(query.Text)
	ranked := make([]domain.RankedContext, 0, len(candidates))
	var validationErrors []string
	for _, candidate := range candidates {
		candidate.Score = boostScore(candidate.Score, candidate.Content, candidate.Title, terms)

		report := validateMetadata(candidate)
		if !report.Valid {
			validationErrors = append(validationErrors, report.Errors...)
		}

		if candidate.Score < query.MinScore {
			continue
		}
		ranked = append(ranked, domain.RankedContext{
			RetrievedContext: candidate,
			Report:           report,
			QueryTime:        queryTime,
		})
	}

	if len(validationErrors) > 0 {
		uc.logger.Warn("metadata_validation_errors",
			"count", len(validationErrors),
			"sample", firstN(validationErrors, 3),
		)
	}

	// Stable: ties keep their original index order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > query.TopK {
		ranked = ranked[:query.TopK]
	}

	uc.logger.Info("retrieval_completed",
		"query", truncateForLog(query.Text, 50),
		"candidates", len(candidates),
		"returned", len(ranked),
		"duration_ms", float64(queryTime.Microseconds())/1000.0,
	)
	return ranked, nil
}

func validateQuery(query domain.RetrievalQuery) error {
	if strings.TrimSpace(query.Text) == "" {
		return domain.WrapError(domain.ErrInvalidQuery, "validate query", errors.New("query cannot be empty"))
	}
	if query.TopK < 1 || query.TopK > domain.MaxTopK {
		return domain.WrapError(domain.ErrInvalidQuery, "validate query",
			fmt.Errorf("top_k must be between 1 and %d", domain.MaxTopK))
	}
	if query.MinScore < 0.0 || query.MinScore > 1.0 {
		return domain.WrapError(domain.ErrInvalidQuery, "validate query",
			errors.New("min_score must be between 0.0 and 1.0"))
	}
	return nil
}

func truncateQuery(text string) string {
	if len(text) <= maxEmbedInputChars {
		return text
	}
	return text[:maxEmbedInputChars]
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
