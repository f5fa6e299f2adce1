package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/imelnikov/bookrag/internal/core/domain"
)

type fakeRetriever struct {
	results [][]domain.RankedContext
	queries []domain.RetrievalQuery
	err     error
}

func (f *fakeRetriever) Retrieve(_ context.Context, query domain.RetrievalQuery) ([]domain.RankedContext, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next, nil
}

type fakeGenerator struct {
	answer       string
	fallback     string
	answerErr    error
	fallbackErr  error
	answerCalls  int
	fallbackCall int
	lastContexts []domain.RankedContext
}

func (f *fakeGenerator) GenerateAnswer(_ context.Context, _ string, contexts []domain.RankedContext, _ float64) (string, error) {
	f.answerCalls++
	f.lastContexts = contexts
	if f.answerErr != nil {
		return "", f.answerErr
	}
	return f.answer, nil
}

func (f *fakeGenerator) GenerateFallback(context.Context, string) (string, error) {
	f.fallbackCall++
	if f.fallbackErr != nil {
		return "", f.fallbackErr
	}
	return f.fallback, nil
}

func sourcedContexts(urls ...string) []domain.RankedContext {
	out := make([]domain.RankedContext, 0, len(urls))
	for _, u := range urls {
		out = append(out, domain.RankedContext{
			RetrievedContext: domain.RetrievedContext{Score: 0.4, URL: u, Content: "body"},
		})
	}
	return out
}

func TestAnswerQuestionHappyPath(t *testing.T) {
	retriever := &fakeRetriever{results: [][]domain.RankedContext{
		sourcedContexts("https://book.example.com/a", "https://book.example.com/b"),
	}}
	generator := &fakeGenerator{answer: "DDS handles transport."}
	uc := NewAnswerUseCase(retriever, generator, discardLogger())

	answer, err := uc.AnswerQuestion(context.Background(), "how does ros2 talk", 5, 0.3, 0.7)
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if answer.Text != "DDS handles transport." {
		t.Fatalf("unexpected answer %q", answer.Text)
	}
	if len(retriever.queries) != 1 {
		t.Fatalf("expected a single retrieval, got %d", len(retriever.queries))
	}
	if generator.fallbackCall != 0 {
		t.Fatalf("fallback must not run when context exists")
	}
	// avg 0.4 → 0.8*0.6 + (2/5)*0.4 = 0.64, unscaled.
	if math.Abs(answer.Confidence-0.64) > 1e-9 {
		t.Fatalf("Confidence = %v, want 0.64", answer.Confidence)
	}
	want := []string{"https://book.example.com/a", "https://book.example.com/b"}
	if len(answer.Sources) != 2 || answer.Sources[0] != want[0] || answer.Sources[1] != want[1] {
		t.Fatalf("Sources = %v, want %v", answer.Sources, want)
	}
}

func TestAnswerQuestionSecondTierHalvesConfidence(t *testing.T) {
	retriever := &fakeRetriever{results: [][]domain.RankedContext{
		nil,
		sourcedContexts("https://book.example.com/a", "https://book.example.com/b"),
	}}
	generator := &fakeGenerator{answer: "best effort"}
	uc := NewAnswerUseCase(retriever, generator, discardLogger())

	answer, err := uc.AnswerQuestion(context.Background(), "obscure question", 5, 0.3, 0.7)
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if len(retriever.queries) != 2 {
		t.Fatalf("expected exactly two retrievals, got %d", len(retriever.queries))
	}
	if retriever.queries[1].MinScore != 0.0 {
		t.Fatalf("second tier must drop the threshold, got %v", retriever.queries[1].MinScore)
	}
	if retriever.queries[1].TopK != 5 {
		t.Fatalf("second tier must keep top_k, got %d", retriever.queries[1].TopK)
	}
	if math.Abs(answer.Confidence-0.32) > 1e-9 {
		t.Fatalf("Confidence = %v, want halved 0.32", answer.Confidence)
	}
}

func TestAnswerQuestionConfidenceFloor(t *testing.T) {
	low := sourcedContexts("https://book.example.com/a")
	low[0].Score = 0.01
	retriever := &fakeRetriever{results: [][]domain.RankedContext{nil, low}}
	uc := NewAnswerUseCase(retriever, &fakeGenerator{answer: "weak"}, discardLogger())

	answer, err := uc.AnswerQuestion(context.Background(), "q", 5, 0.3, 0.7)
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if answer.Confidence != 0.1 {
		t.Fatalf("Confidence = %v, want floor 0.1", answer.Confidence)
	}
}

func TestAnswerQuestionFallbackWhenNothingRetrieved(t *testing.T) {
	retriever := &fakeRetriever{results: [][]domain.RankedContext{nil, nil}}
	generator := &fakeGenerator{fallback: "I could not find that in the book."}
	uc := NewAnswerUseCase(retriever, generator, discardLogger())

	answer, err := uc.AnswerQuestion(context.Background(), "off-topic", 5, 0.3, 0.7)
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if generator.fallbackCall != 1 || generator.answerCalls != 0 {
		t.Fatalf("expected only the fallback generator, got answer=%d fallback=%d",
			generator.answerCalls, generator.fallbackCall)
	}
	if answer.Text != "I could not find that in the book." {
		t.Fatalf("unexpected answer %q", answer.Text)
	}
	if answer.Confidence != 0.1 {
		t.Fatalf("Confidence = %v, want 0.1", answer.Confidence)
	}
	if len(answer.Sources) != 0 {
		t.Fatalf("expected no sources, got %v", answer.Sources)
	}
}

func TestAnswerQuestionPropagatesRetrievalErrors(t *testing.T) {
	retriever := &fakeRetriever{err: domain.WrapError(domain.ErrInvalidQuery, "validate query", errors.New("query cannot be empty"))}
	uc := NewAnswerUseCase(retriever, &fakeGenerator{}, discardLogger())

	_, err := uc.AnswerQuestion(context.Background(), "", 5, 0.3, 0.7)
	if !domain.IsKind(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestAnswerQuestionGeneratorFailure(t *testing.T) {
	retriever := &fakeRetriever{results: [][]domain.RankedContext{sourcedContexts("https://book.example.com/a")}}
	generator := &fakeGenerator{answerErr: errors.New("model unavailable")}
	uc := NewAnswerUseCase(retriever, generator, discardLogger())

	if _, err := uc.AnswerQuestion(context.Background(), "q", 5, 0.3, 0.7); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSourceURLsDeduplicates(t *testing.T) {
	contexts := sourcedContexts("https://a", "https://b", "https://a", "")
	got := sourceURLs(contexts)
	if len(got) != 2 || got[0] != "https://a" || got[1] != "https://b" {
		t.Fatalf("sourceURLs() = %v", got)
	}
}
