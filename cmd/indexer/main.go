package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/imelnikov/bookrag/internal/bootstrap"
	"github.com/imelnikov/bookrag/internal/config"
	"github.com/imelnikov/bookrag/internal/observability/logging"
	"github.com/imelnikov/bookrag/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.New("indexer", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	indexerMetrics := metrics.NewIndexerMetrics("indexer")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.IndexerMetricsPort,
		Handler: metricsMux(indexerMetrics),
	}
	go func() {
		logger.Info("indexer_metrics_listening", "port", cfg.IndexerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("indexer_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribePageQueued(ctx, func(handlerCtx context.Context, pageURL string) error {
		indexCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Minute)
		defer cancel()

		// Queued pages carry their enqueue time in updated_at.
		if page, lookupErr := app.Pages.GetByURL(indexCtx, pageURL); lookupErr == nil {
			indexerMetrics.ObserveQueueLag("indexer", time.Since(page.UpdatedAt))
		}

		indexerMetrics.StartPage()
		start := time.Now()
		indexErr := app.IndexUC.IndexPage(indexCtx, pageURL)
		indexerMetrics.FinishPage("indexer", time.Since(start), indexErr)
		if indexErr == nil {
			if page, lookupErr := app.Pages.GetByURL(indexCtx, pageURL); lookupErr == nil {
				indexerMetrics.AddChunks("indexer", page.ChunkCount)
			}
		}
		return indexErr
	})
	if err != nil {
		logger.Error("indexer_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func metricsMux(m *metrics.IndexerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
