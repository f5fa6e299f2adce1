package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"golang.org/x/time/rate"

	"github.com/imelnikov/bookrag/internal/core/domain"
	"github.com/imelnikov/bookrag/internal/core/ports"
)

// IndexPageUseCase processes one queued corpus page: fetch, snapshot,
// extract, chunk, embed in paced batches, upsert into the vector index.
// Embedding batches are rate-limited to respect provider quotas; the
// batches themselves run sequentially.
type IndexPageUseCase struct {
	pages     ports.PageRepository
	fetcher   ports.PageFetcher
	storage   ports.ObjectStorage
	extractor ports.ContentExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.VectorIndex

	batchSize int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

func NewIndexPageUseCase(
	pages ports.PageRepository,
	fetcher ports.PageFetcher,
	storage ports.ObjectStorage,
	extractor ports.ContentExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	batchSize int,
	batchesPerSecond float64,
	logger *slog.Logger,
) *IndexPageUseCase {
	if batchSize <= 0 {
		batchSize = 96
	}
	if batchesPerSecond <= 0 {
		batchesPerSecond = 2.0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexPageUseCase{
		pages:     pages,
		fetcher:   fetcher,
		storage:   storage,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Limit(batchesPerSecond), 1),
		logger:    logger,
	}
}

func (uc *IndexPageUseCase) IndexPage(ctx context.Context, pageURL string) error {
	page, err := uc.pages.GetByURL(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("load page record: %w", err)
	}

	if err := uc.pages.UpdateStatus(ctx, pageURL, domain.PageIndexing, 0, ""); err != nil {
		return fmt.Errorf("set status=indexing: %w", err)
	}

	chunkCount, err := uc.indexPipeline(ctx, page)
	if err != nil {
		if failErr := uc.pages.UpdateStatus(ctx, pageURL, domain.PageFailed, 0, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.pages.UpdateStatus(ctx, pageURL, domain.PageIndexed, chunkCount, ""); err != nil {
		return fmt.Errorf("set status=indexed: %w", err)
	}

	uc.logger.Info("page_indexed", "url", pageURL, "chunks", chunkCount)
	return nil
}

func (uc *IndexPageUseCase) indexPipeline(ctx context.Context, page *domain.SourcePage) (int, error) {
	raw, err := uc.fetcher.Fetch(ctx, page.URL)
	if err != nil {
		return 0, fmt.Errorf("fetch page: %w", err)
	}

	if err := uc.storage.Save(ctx, snapshotKey(page.URL), bytes.NewReader(raw)); err != nil {
		return 0, fmt.Errorf("save page snapshot: %w", err)
	}

	content, err := uc.extractor.Extract(page.URL, raw)
	if err != nil {
		return 0, fmt.Errorf("extract content: %w", err)
	}

	texts := uc.chunker.Split(content.Text)
	if len(texts) == 0 {
		return 0, nil
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			Index:          i,
			Content:        text,
			URL:            page.URL,
			Title:          content.Title,
			Headings:       content.Headings,
			SourceDocument: sourceDocument(page),
			Metadata: map[string]any{
				"section":        page.Section,
				"content_length": len(text),
			},
		}
	}

	embedded, err := uc.embedChunks(ctx, chunks)
	if err != nil {
		return 0, err
	}

	if err := uc.index.UpsertChunks(ctx, embedded); err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}
	return len(embedded), nil
}

func (uc *IndexPageUseCase) embedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.EmbeddedChunk, error) {
	embedded := make([]domain.EmbeddedChunk, 0, len(chunks))
	for offset := 0; offset < len(chunks); offset += uc.batchSize {
		if err := uc.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding rate limit: %w", err)
		}

		end := min(offset+uc.batchSize, len(chunks))
		batch := chunks[offset:end]
		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		vectors, err := uc.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", offset, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embed batch at %d: got %d vectors for %d chunks", offset, len(vectors), len(batch))
		}

		for i, chunk := range batch {
			embedded = append(embedded, domain.EmbeddedChunk{Chunk: chunk, Vector: vectors[i]})
		}
	}
	return embedded, nil
}

func sourceDocument(page *domain.SourcePage) string {
	if page.Section != "" {
		return page.Section
	}
	if parsed, err := url.Parse(page.URL); err == nil && parsed.Path != "" {
		return path.Base(parsed.Path)
	}
	return page.URL
}

func snapshotKey(pageURL string) string {
	key := strings.TrimPrefix(pageURL, "https://")
	key = strings.TrimPrefix(key, "http://")
	key = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	if key == "" {
		return "page.html"
	}
	return key + ".html"
}
