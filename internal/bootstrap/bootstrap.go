package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/imelnikov/bookrag/internal/config"
	"github.com/imelnikov/bookrag/internal/core/ports"
	"github.com/imelnikov/bookrag/internal/core/usecase"
	"github.com/imelnikov/bookrag/internal/infrastructure/chunking"
	"github.com/imelnikov/bookrag/internal/infrastructure/crawler/docusaurus"
	"github.com/imelnikov/bookrag/internal/infrastructure/embedding/cohere"
	"github.com/imelnikov/bookrag/internal/infrastructure/llm/openaicompat"
	"github.com/imelnikov/bookrag/internal/infrastructure/manifest"
	"github.com/imelnikov/bookrag/internal/infrastructure/queue/nats"
	"github.com/imelnikov/bookrag/internal/infrastructure/repository/postgres"
	"github.com/imelnikov/bookrag/internal/infrastructure/resilience"
	"github.com/imelnikov/bookrag/internal/infrastructure/storage/localfs"
	"github.com/imelnikov/bookrag/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Pages    ports.PageRepository
	Index    ports.VectorIndex
	Embedder ports.Embedder

	RetrieveUC *usecase.RetrieveUseCase
	AnswerUC   *usecase.AnswerUseCase
	ReindexUC  *usecase.ReindexUseCase
	IndexUC    *usecase.IndexPageUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pages := postgres.NewPageRepository(db)
	if err := pages.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init snapshot storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	corpus, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("load corpus manifest: %w", err)
	}

	embedder := cohere.New(cfg.CohereURL, cfg.CohereAPIKey, cfg.CohereModel, executor)
	generator := openaicompat.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, executor)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, cfg.VectorSize, logger)

	fetcher := docusaurus.NewFetcher(int64(cfg.FetchConcurrency), "")
	extractor := docusaurus.NewExtractor()
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	retrieveUC := usecase.NewRetrieveUseCase(embedder, vectorDB, logger)
	answerUC := usecase.NewAnswerUseCase(retrieveUC, generator, logger)
	reindexUC := usecase.NewReindexUseCase(corpus, pages, queue, logger)
	indexUC := usecase.NewIndexPageUseCase(
		pages, fetcher, storage, extractor, chunker, embedder, vectorDB,
		cfg.EmbedBatchSize, cfg.EmbedBatchesPerSecond, logger,
	)

	return &App{
		Config:   cfg,
		Queue:    queue,
		Pages:    pages,
		Index:    vectorDB,
		Embedder: embedder,

		RetrieveUC: retrieveUC,
		AnswerUC:   answerUC,
		ReindexUC:  reindexUC,
		IndexUC:    indexUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
