package cohere

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/imelnikov/bookrag/internal/core/domain"
	"github.com/imelnikov/bookrag/internal/infrastructure/resilience"
)

const (
	inputTypeQuery    = "search_query"
	inputTypeDocument = "search_document"
)

// Client embeds text through the Cohere REST API. Queries and documents
// use distinct input types; the model projects them into the same space
// but optimizes each side differently.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text}, inputTypeQuery)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrEmbedding, "cohere embed query", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return c.embed(ctx, texts, inputTypeDocument)
}

func (c *Client) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	request := map[string]any{
		"model":      c.model,
		"texts":      texts,
		"input_type": inputType,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/embed", request, &response, "embed")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "cohere.embed", call, resilience.ClassifyHTTP)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbedding, "cohere embed", resilience.WrapTemporary("embed", err, nil))
	}

	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbedding, "cohere embed",
			fmt.Errorf("got %d embeddings for %d texts", len(response.Embeddings), len(texts)))
	}
	return response.Embeddings, nil
}
