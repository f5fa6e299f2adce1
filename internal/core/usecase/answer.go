package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/imelnikov/bookrag/internal/core/domain"
	"github.com/imelnikov/bookrag/internal/core/ports"
)

const (
	fallbackConfidenceScale = 0.5
	minimumConfidence       = 0.1
)

// AnswerUseCase grounds an LLM-generated answer in retrieved textbook
// context. When the configured threshold yields nothing, it runs exactly
// one best-effort retrieval with the threshold at zero. The second call
// is explicit; the retriever itself never relaxes thresholds.
type AnswerUseCase struct {
	retriever ports.ContextRetriever
	generator ports.AnswerGenerator
	logger    *slog.Logger
}

func NewAnswerUseCase(retriever ports.ContextRetriever, generator ports.AnswerGenerator, logger *slog.Logger) *AnswerUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerUseCase{
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

func (uc *AnswerUseCase) AnswerQuestion(
	ctx context.Context,
	question string,
	topK int,
	minScore, temperature float64,
) (*domain.Answer, error) {
	start := time.Now()

	contexts, err := uc.retriever.Retrieve(ctx, domain.RetrievalQuery{
		Text:     question,
		TopK:     topK,
		MinScore: minScore,
	})
	if err != nil {
		return nil, err
	}

	confidenceScale := 1.0
	if len(contexts) == 0 {
		contexts, err = uc.retriever.Retrieve(ctx, domain.RetrievalQuery{
			Text:     question,
			TopK:     topK,
			MinScore: 0.0,
		})
		if err != nil {
			return nil, err
		}
		confidenceScale = fallbackConfidenceScale
		uc.logger.Info("low_confidence_tier",
			"query", truncateForLog(question, 50),
			"hits", len(contexts),
		)
	}

	quality := assessRetrievalQuality(contexts)
	uc.logger.Info("retrieval_quality",
		"context_count", quality.ContextCount,
		"avg_score", quality.AvgScore,
		"score_variance", quality.ScoreVariance,
		"has_valid_sources", quality.HasValidSources,
	)

	var text string
	var confidence float64
	switch {
	case len(contexts) == 0:
		text, err = uc.generator.GenerateFallback(ctx, question)
		if err != nil {
			return nil, fmt.Errorf("generate fallback answer: %w", err)
		}
		confidence = minimumConfidence
	default:
		text, err = uc.generator.GenerateAnswer(ctx, question, contexts, temperature)
		if err != nil {
			return nil, fmt.Errorf("generate answer: %w", err)
		}
		confidence = estimateConfidence(contexts) * confidenceScale
		if confidence < minimumConfidence {
			confidence = minimumConfidence
		}
	}

	return &domain.Answer{
		Query:          question,
		Text:           text,
		Confidence:     confidence,
		Sources:        sourceURLs(contexts),
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

func sourceURLs(contexts []domain.RankedContext) []string {
	seen := make(map[string]struct{}, len(contexts))
	sources := make([]string, 0, len(contexts))
	for _, ctx := range contexts {
		if ctx.URL == "" {
			continue
		}
		if _, dup := seen[ctx.URL]; dup {
			continue
		}
		seen[ctx.URL] = struct{}{}
		sources = append(sources, ctx.URL)
	}
	return sources
}
