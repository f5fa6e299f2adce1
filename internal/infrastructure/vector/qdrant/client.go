package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imelnikov/bookrag/internal/core/domain"
)

const (
	defaultTimeout  = 30 * time.Second
	upsertBatchSize = 100
)

// searchVariant is one Qdrant search API flavor. Deployed clusters differ
// across versions, so Search walks these in fixed preference order instead
// of sniffing the server version.
type searchVariant struct {
	name string
	path string
	body func(vector []float32, limit int) map[string]any
}

var searchVariants = []searchVariant{
	{
		name: "points_query",
		path: "points/query",
		body: func(vector []float32, limit int) map[string]any {
			return map[string]any{"query": vector, "limit": limit, "with_payload": true}
		},
	},
	{
		name: "points_search",
		path: "points/search",
		body: func(vector []float32, limit int) map[string]any {
			return map[string]any{"vector": vector, "limit": limit, "with_payload": true}
		},
	},
	{
		name: "points_search_legacy",
		path: "points/search",
		body: func(vector []float32, limit int) map[string]any {
			return map[string]any{"vector": vector, "top": limit, "with_payload": true}
		},
	},
}

// Client talks to Qdrant over its REST API. Search hands the decoded
// response body back untouched; normalization lives in the retrieval core.
type Client struct {
	httpClient *http.Client
	baseURL    string
	collection string
	vectorSize int
	logger     *slog.Logger

	ensureOnce sync.Once
	ensureErr  error
}

func New(baseURL, collection string, vectorSize int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		vectorSize: vectorSize,
		logger:     logger,
	}
}

func (c *Client) Search(ctx context.Context, vector []float32, limit int) (domain.RawIndexResult, error) {
	var lastStatus int
	for _, variant := range searchVariants {
		url := fmt.Sprintf("%s/collections/%s/%s", c.baseURL, c.collection, variant.path)
		status, body, err := c.postJSON(ctx, url, variant.body(vector, limit))
		if err != nil {
			return nil, fmt.Errorf("qdrant search (%s): %w", variant.name, err)
		}
		if status == http.StatusNotFound || status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
			lastStatus = status
			c.logger.Debug("qdrant_search_variant_unsupported", "variant", variant.name, "status", status)
			continue
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("qdrant search (%s): status %d: %s", variant.name, status, truncateBody(body))
		}

		var decoded any
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, domain.WrapError(domain.ErrIndexShape, "qdrant search decode",
				fmt.Errorf("variant %s: %w", variant.name, err))
		}
		return decoded, nil
	}

	return nil, domain.WrapError(domain.ErrIndexShape, "qdrant search",
		fmt.Errorf("no supported search endpoint, last status %d", lastStatus))
}

func (c *Client) UpsertChunks(ctx context.Context, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx); err != nil {
		return err
	}

	for offset := 0; offset < len(chunks); offset += upsertBatchSize {
		end := min(offset+upsertBatchSize, len(chunks))
		points := make([]map[string]any, 0, end-offset)
		for _, chunk := range chunks[offset:end] {
			points = append(points, map[string]any{
				"id":     uuid.NewString(),
				"vector": chunk.Vector,
				"payload": map[string]any{
					"url":             chunk.URL,
					"title":           chunk.Title,
					"content":         chunk.Content,
					"headings":        chunk.Headings,
					"chunk_index":     chunk.Index,
					"source_document": chunk.SourceDocument,
					"metadata":        chunk.Metadata,
				},
			})
		}

		url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
		status, body, err := c.putJSON(ctx, url, map[string]any{"points": points})
		if err != nil {
			return fmt.Errorf("qdrant upsert batch at %d: %w", offset, err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("qdrant upsert batch at %d: status %d: %s", offset, status, truncateBody(body))
		}
	}

	c.logger.Info("qdrant_upsert_completed", "collection", c.collection, "points", len(chunks))
	return nil
}

func (c *Client) Stats(ctx context.Context) (domain.IndexStats, error) {
	stats := domain.IndexStats{}

	status, body, err := c.getJSON(ctx, fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection))
	if err != nil {
		stats.Error = err.Error()
		return stats, nil
	}
	if status == http.StatusNotFound {
		return stats, nil
	}
	if status != http.StatusOK {
		stats.Error = fmt.Sprintf("collection info: status %d", status)
		return stats, nil
	}

	var info struct {
		Result struct {
			PointsCount  *int64 `json:"points_count"`
			VectorsCount *int64 `json:"vectors_count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		stats.Error = fmt.Sprintf("collection info decode: %v", err)
		return stats, nil
	}
	stats.CollectionExists = true
	if info.Result.PointsCount != nil {
		stats.VectorCount = *info.Result.PointsCount
	} else if info.Result.VectorsCount != nil {
		stats.VectorCount = *info.Result.VectorsCount
	}

	probe := make([]float32, c.vectorSize)
	for i := range probe {
		probe[i] = 0.1
	}
	if _, err := c.Search(ctx, probe, 1); err != nil {
		stats.Error = err.Error()
		return stats, nil
	}
	stats.SampleSearchWorks = true
	return stats, nil
}

func (c *Client) ensureCollection(ctx context.Context) error {
	c.ensureOnce.Do(func() {
		status, _, err := c.getJSON(ctx, fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection))
		if err != nil {
			c.ensureErr = fmt.Errorf("qdrant collection check: %w", err)
			return
		}
		if status == http.StatusOK {
			return
		}

		createStatus, body, err := c.putJSON(ctx,
			fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection),
			map[string]any{
				"vectors": map[string]any{
					"size":     c.vectorSize,
					"distance": "Cosine",
				},
			})
		if err != nil {
			c.ensureErr = fmt.Errorf("qdrant collection create: %w", err)
			return
		}
		// Conflict means another instance created it first.
		if createStatus != http.StatusOK && createStatus != http.StatusConflict {
			c.ensureErr = fmt.Errorf("qdrant collection create: status %d: %s", createStatus, truncateBody(body))
			return
		}
		c.logger.Info("qdrant_collection_created", "collection", c.collection, "vector_size", c.vectorSize)
	})
	return c.ensureErr
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) (int, []byte, error) {
	return c.doJSON(ctx, http.MethodPost, url, payload)
}

func (c *Client) putJSON(ctx context.Context, url string, payload any) (int, []byte, error) {
	return c.doJSON(ctx, http.MethodPut, url, payload)
}

func (c *Client) getJSON(ctx context.Context, url string) (int, []byte, error) {
	return c.doJSON(ctx, http.MethodGet, url, nil)
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func truncateBody(body []byte) string {
	const limit = 200
	s := string(body)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
