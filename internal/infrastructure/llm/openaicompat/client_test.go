package openaicompat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/imelnikov/bookrag/internal/core/domain"
	"github.com/imelnikov/bookrag/internal/infrastructure/resilience"
)

func chatResponse(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":` + mustJSON(content) + `}}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func testContexts() []domain.RankedContext {
	return []domain.RankedContext{{
		RetrievedContext: domain.RetrievedContext{
			Score:    0.7,
			URL:      "https://book.example.com/docs/dds",
			Title:    "DDS Transport",
			Headings: []string{"Middleware"},
			Content:  "DDS provides discovery and transport.",
		},
	}}
}

func TestGenerateAnswerRequestShape(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth %q", got)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(chatResponse("DDS handles transport.")))
	}))
	defer server.Close()

	client := New(server.URL+"/v1", "key", "gemini-2.0-flash", nil)
	answer, err := client.GenerateAnswer(context.Background(), "how does ros2 talk", testContexts(), 0.7)
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if answer != "DDS handles transport." {
		t.Fatalf("unexpected answer %q", answer)
	}

	if gotBody["model"] != "gemini-2.0-flash" {
		t.Fatalf("model = %v", gotBody["model"])
	}
	if gotBody["temperature"] != 0.7 {
		t.Fatalf("temperature = %v", gotBody["temperature"])
	}
	messages := gotBody["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(messages))
	}
	user := messages[1].(map[string]any)["content"].(string)
	if !strings.Contains(user, "DDS provides discovery and transport.") {
		t.Fatalf("prompt missing excerpt:\n%s", user)
	}
	if !strings.Contains(user, "Question: how does ros2 talk") {
		t.Fatalf("prompt missing question:\n%s", user)
	}
	if !strings.Contains(user, "https://book.example.com/docs/dds") {
		t.Fatalf("prompt missing source url:\n%s", user)
	}
}

func TestGenerateFallbackUsesLowTemperature(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(chatResponse("The book does not cover that.")))
	}))
	defer server.Close()

	client := New(server.URL, "", "m", nil)
	answer, err := client.GenerateFallback(context.Background(), "what about quantum chess")
	if err != nil {
		t.Fatalf("GenerateFallback() error = %v", err)
	}
	if answer == "" {
		t.Fatalf("expected fallback text")
	}
	if gotBody["temperature"] != 0.3 {
		t.Fatalf("temperature = %v, want 0.3", gotBody["temperature"])
	}
}

func TestGenerateAnswerEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "", "m", nil)
	if _, err := client.GenerateAnswer(context.Background(), "q", testContexts(), 0.7); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGenerateAnswerRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(chatResponse("ok")))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		Retry: resilience.RetryPolicy{
			MaxAttempts:    2,
			InitialBackoff: 1,
			MaxBackoff:     1,
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	client := New(server.URL, "", "m", executor)
	if _, err := client.GenerateAnswer(context.Background(), "q", testContexts(), 0.7); err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected retry, got %d calls", calls)
	}
}

func TestBuildAnswerPromptTrimsLongExcerpts(t *testing.T) {
	contexts := testContexts()
	contexts[0].Content = strings.Repeat("x", maxExcerptChars+100)
	prompt := buildAnswerPrompt("q", contexts)
	if strings.Contains(prompt, strings.Repeat("x", maxExcerptChars+1)) {
		t.Fatalf("excerpt not trimmed")
	}
	if !strings.Contains(prompt, "...") {
		t.Fatalf("expected ellipsis marker")
	}
}
