package openaicompat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/imelnikov/bookrag/internal/core/domain"
	"github.com/imelnikov/bookrag/internal/infrastructure/resilience"
)

const maxCompletionTokens = 2000

// Client generates answers through any OpenAI-compatible chat completions
// endpoint. The provider is selected purely by base URL and model name.
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
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) GenerateAnswer(ctx context.Context, question string, contexts []domain.RankedContext, temperature float64) (string, error) {
	messages := []chatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: buildAnswerPrompt(question, contexts)},
	}
	return c.complete(ctx, messages, temperature)
}

func (c *Client) GenerateFallback(ctx context.Context, question string) (string, error) {
	messages := []chatMessage{
		{Role: "system", Content: fallbackSystemPrompt},
		{Role: "user", Content: question},
	}
	return c.complete(ctx, messages, 0.3)
}

func (c *Client) complete(ctx context.Context, messages []chatMessage, temperature float64) (string, error) {
	request := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": temperature,
		"max_tokens":  maxCompletionTokens,
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/chat/completions", request, &response, "chat")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "llm.chat", call, resilience.ClassifyHTTP)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", resilience.WrapTemporary("chat completion", err, nil)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
