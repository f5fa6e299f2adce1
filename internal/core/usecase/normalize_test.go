package usecase

import (
	"math"
	"reflect"
	"testing"

	"github.com/imelnikov/bookrag/internal/core/domain"
)

func samplePayload() map[string]any {
	return map[string]any{
		"url":             "https://book.example.com/docs/ros2",
		"title":           "ROS 2",
		"content":         "ROS 2 architecture uses DDS for transport",
		"headings":        []any{"Middleware", "DDS"},
		"chunk_index":     float64(3),
		"source_document": "chapter-2",
		"metadata":        map[string]any{"section": "middleware"},
	}
}

func TestNormalizeResponseEnvelopeVariants(t *testing.T) {
	hit := map[string]any{"score": 0.42, "payload": samplePayload()}

	cases := []struct {
		name string
		raw  domain.RawIndexResult
	}{
		{"results_object", map[string]any{"results": []any{hit}}},
		{"points_object", map[string]any{"points": []any{hit}}},
		{"nested_points", map[string]any{"result": map[string]any{"points": []any{hit}}}},
		{"result_array", map[string]any{"result": []any{hit}}},
		{"plain_array", []any{hit}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := normalizeResponse(tc.raw)
			if err != nil {
				t.Fatalf("normalizeResponse() error = %v", err)
			}
			if len(out) != 1 {
				t.Fatalf("expected 1 result, got %d", len(out))
			}
			if out[0].Score != 0.42 {
				t.Fatalf("expected score 0.42, got %v", out[0].Score)
			}
			if out[0].URL != "https://book.example.com/docs/ros2" {
				t.Fatalf("unexpected url %q", out[0].URL)
			}
			if out[0].ChunkIndex != 3 {
				t.Fatalf("expected chunk_index 3, got %d", out[0].ChunkIndex)
			}
		})
	}
}

func TestNormalizeResponseUnknownShapeFails(t *testing.T) {
	_, err := normalizeResponse(map[string]any{"status": "ok"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrIndexShape) {
		t.Fatalf("expected ErrIndexShape, got %v", err)
	}
}

func TestNormalizeResponseZeroHitsIsNotAnError(t *testing.T) {
	out, err := normalizeResponse(map[string]any{"result": []any{}})
	if err != nil {
		t.Fatalf("normalizeResponse() error = %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %d", len(out))
	}
}

func TestNormalizeHitPairVariant(t *testing.T) {
	out := normalizeHit([]any{samplePayload(), 0.7})
	if out.Score != 0.7 {
		t.Fatalf("expected score 0.7, got %v", out.Score)
	}
	if out.Title != "ROS 2" {
		t.Fatalf("expected payload promoted from pair, got %q", out.Title)
	}
	if out.PayloadDegraded {
		t.Fatalf("pair payload should not be degraded")
	}
}

func TestNormalizeHitProbedScoreKeys(t *testing.T) {
	underscore := normalizeHit(map[string]any{"score_": 0.33, "payload": samplePayload()})
	if underscore.Score != 0.33 {
		t.Fatalf("expected score_ fallback, got %v", underscore.Score)
	}

	similarity := normalizeHit(map[string]any{"similarity": 0.25, "payload": samplePayload()})
	if similarity.Score != 0.25 {
		t.Fatalf("expected similarity fallback, got %v", similarity.Score)
	}
}

func TestNormalizeHitMappingWithoutPayloadKeyUsesWholeObject(t *testing.T) {
	m := samplePayload()
	m["score"] = 0.5
	out := normalizeHit(m)
	if out.Score != 0.5 {
		t.Fatalf("expected score 0.5, got %v", out.Score)
	}
	if out.Content == "" {
		t.Fatalf("expected content promoted from the hit object itself")
	}
}

func TestNormalizeHitStringPayloadDegradesToEmptyMapping(t *testing.T) {
	out := normalizeHit(map[string]any{"score": 0.9, "payload": "not-a-dict"})
	if out.Payload == nil {
		t.Fatalf("payload must be a mapping after normalization")
	}
	if len(out.Payload) != 0 {
		t.Fatalf("expected empty payload, got %v", out.Payload)
	}
	if !out.PayloadDegraded {
		t.Fatalf("expected degraded flag")
	}
	if out.Score != 0.9 {
		t.Fatalf("score must survive payload degradation, got %v", out.Score)
	}
}

func TestNormalizeHitUnknownShapeDegrades(t *testing.T) {
	out := normalizeHit("garbage")
	if out.Score != 0.0 {
		t.Fatalf("expected zero score, got %v", out.Score)
	}
	if out.Payload == nil || len(out.Payload) != 0 {
		t.Fatalf("expected empty payload mapping, got %v", out.Payload)
	}
}

func TestCoerceScoreVariants(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{"float", 0.42, 0.42},
		{"int", 1, 1.0},
		{"numeric_string", "0.5", 0.5},
		{"garbage_string", "high", 0.0},
		{"sequence_first_numeric", []any{0.7, "x"}, 0.7},
		{"sequence_no_numeric", []any{"x", "y"}, 0.0},
		{"nil", nil, 0.0},
		{"object", map[string]any{"v": 1}, 0.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := coerceScore(tc.in); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("coerceScore(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizationIsIdempotent(t *testing.T) {
	raw := map[string]any{"result": []any{
		map[string]any{"score": 0.4, "payload": samplePayload()},
		[]any{samplePayload(), []any{0.7, "x"}},
	}}

	first, err := normalizeResponse(raw)
	if err != nil {
		t.Fatalf("first normalizeResponse() error = %v", err)
	}
	second, err := normalizeResponse(raw)
	if err != nil {
		t.Fatalf("second normalizeResponse() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalization not idempotent:\nfirst  %#v\nsecond %#v", first, second)
	}
	if second[1].Score != 0.7 {
		t.Fatalf("expected pair score collapsed to 0.7, got %v", second[1].Score)
	}
}
