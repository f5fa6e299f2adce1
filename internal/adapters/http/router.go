package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/imelnikov/bookrag/internal/core/domain"
	"github.com/imelnikov/bookrag/internal/core/ports"
	"github.com/imelnikov/bookrag/internal/observability/metrics"
)

const serviceName = "api"

// QueryDefaults fills in top_k and min_score when a request omits them.
// Zero values fall back to the domain defaults.
type QueryDefaults struct {
	TopK     int
	MinScore float64
}

type Router struct {
	answerer  ports.QuestionAnswerer
	retriever ports.ContextRetriever
	ingestor  ports.CorpusIngestor
	index     ports.VectorIndex
	pages     ports.PageRepository
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
	defaults  QueryDefaults
}

func NewRouter(
	answerer ports.QuestionAnswerer,
	retriever ports.ContextRetriever,
	ingestor ports.CorpusIngestor,
	index ports.VectorIndex,
	pages ports.PageRepository,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	defaults QueryDefaults,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if defaults.TopK <= 0 {
		defaults.TopK = domain.DefaultTopK
	}
	if defaults.MinScore <= 0 {
		defaults.MinScore = domain.DefaultMinScore
	}
	return &Router{
		answerer:  answerer,
		retriever: retriever,
		ingestor:  ingestor,
		index:     index,
		pages:     pages,
		metrics:   m,
		logger:    logger,
		defaults:  defaults,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/rag/query", rt.queryRAG)
	mux.HandleFunc("/v1/rag/retrieve", rt.retrieve)
	mux.HandleFunc("/v1/rag/health", rt.ragHealth)
	mux.HandleFunc("/v1/corpus/reindex", rt.reindexCorpus)
	mux.HandleFunc("/v1/corpus/status", rt.corpusStatus)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = accessLogMiddleware(rt.logger, handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Query       string   `json:"query"`
	TopK        *int     `json:"top_k"`
	MinScore    *float64 `json:"min_score"`
	Temperature *float64 `json:"temperature"`
}

func (rt *Router) queryParams(req *queryRequest) (topK int, minScore, temperature float64) {
	topK = rt.defaults.TopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	minScore = rt.defaults.MinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	temperature = 0.7
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	return topK, minScore, temperature
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	topK, minScore, temperature := rt.queryParams(&req)
	start := time.Now()
	answer, err := rt.answerer.AnswerQuestion(r.Context(), req.Query, topK, minScore, temperature)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRAGObservation(serviceName, "query", len(answer.Sources), time.Since(start))
		rt.metrics.RecordConfidence(serviceName, answer.Confidence)
		if len(answer.Sources) == 0 {
			rt.metrics.RecordFallbackAnswer(serviceName)
		}
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	topK, minScore, _ := rt.queryParams(&req)
	start := time.Now()
	contexts, err := rt.retriever.Retrieve(r.Context(), domain.RetrievalQuery{
		Text:     req.Query,
		TopK:     topK,
		MinScore: minScore,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRAGObservation(serviceName, "retrieve", len(contexts), time.Since(start))
		metadataErrs := 0
		for i := range contexts {
			metadataErrs += len(contexts[i].Report.Errors)
		}
		rt.metrics.RecordMetadataErrors(serviceName, metadataErrs)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"results": contexts,
		"count":   len(contexts),
	})
}

func (rt *Router) ragHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	stats, err := rt.index.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if !stats.CollectionExists || !stats.SampleSearchWorks {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, stats)
}

func (rt *Router) reindexCorpus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	published, err := rt.ingestor.Reindex(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordReindexRequest(serviceName)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "queued",
		"pages_queued": published,
	})
}

func (rt *Router) corpusStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	counts, err := rt.pages.CountByStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	total := 0
	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pages": byStatus,
		"total": total,
	})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
