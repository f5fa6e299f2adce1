package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/imelnikov/bookrag/internal/core/domain"
	"github.com/imelnikov/bookrag/internal/core/ports"
)

// ReindexUseCase walks the corpus manifest, records every page as queued
// and publishes one indexing event per page. The heavy lifting happens in
// the indexer worker.
type ReindexUseCase struct {
	manifest ports.CorpusManifest
	pages    ports.PageRepository
	queue    ports.MessageQueue
	logger   *slog.Logger
}

func NewReindexUseCase(
	manifest ports.CorpusManifest,
	pages ports.PageRepository,
	queue ports.MessageQueue,
	logger *slog.Logger,
) *ReindexUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReindexUseCase{
		manifest: manifest,
		pages:    pages,
		queue:    queue,
		logger:   logger,
	}
}

func (uc *ReindexUseCase) Reindex(ctx context.Context) (int, error) {
	published := 0
	for _, entry := range uc.manifest.Pages() {
		now := time.Now().UTC()
		page := &domain.SourcePage{
			ID:        uuid.NewString(),
			URL:       entry.URL,
			Section:   entry.Section,
			Status:    domain.PageQueued,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := uc.pages.Upsert(ctx, page); err != nil {
			return published, fmt.Errorf("queue page %s: %w", entry.URL, err)
		}
		if err := uc.queue.PublishPageQueued(ctx, entry.URL); err != nil {
			return published, fmt.Errorf("publish page event %s: %w", entry.URL, err)
		}
		published++
	}

	uc.logger.Info("corpus_reindex_queued", "pages", published)
	return published, nil
}
