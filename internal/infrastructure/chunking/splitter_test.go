package chunking

import (
	"strings"
	"testing"
)

func TestSplitEmptyText(t *testing.T) {
	if got := NewSplitter(100, 20).Split("   "); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	got := NewSplitter(100, 20).Split("one short paragraph")
	if len(got) != 1 || got[0] != "one short paragraph" {
		t.Fatalf("unexpected chunks %v", got)
	}
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	text := strings.Repeat("abcdefghij", 30) // 300 runes, no break points
	chunks := NewSplitter(100, 20).Split(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-20:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Fatalf("chunk %d does not start with previous tail", i)
		}
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	text := strings.Repeat("w", 90) + ". " + strings.Repeat("v", 100)
	chunks := NewSplitter(100, 10).Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Fatalf("first chunk should end at the sentence: %q", chunks[0])
	}
}

func TestSplitDefaultsRepairBadConfig(t *testing.T) {
	s := NewSplitter(0, -5)
	if s.ChunkSize != 1100 || s.Overlap != 0 {
		t.Fatalf("unexpected defaults %+v", s)
	}
	s = NewSplitter(100, 100)
	if s.Overlap != 25 {
		t.Fatalf("overlap not clamped: %+v", s)
	}
}

func TestSplitCoversAllText(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet. ", 50)
	chunks := NewSplitter(200, 40).Split(text)
	joined := strings.Join(chunks, " ")
	if !strings.Contains(joined, "lorem ipsum dolor sit amet.") {
		t.Fatalf("chunks lost content")
	}
	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(strings.TrimSpace(text), last) {
		t.Fatalf("final chunk must end where the text ends: %q", last)
	}
}
