package usecase

import (
	"log/slog"
	"strconv"

	"github.com/imelnikov/bookrag/internal/core/domain"
)

// responseAdapter extracts the hit list from one known index response
// envelope. Adapters are tried in fixed preference order, most modern
// shape first; the first one that matches wins.
type responseAdapter struct {
	name    string
	extract func(raw domain.RawIndexResult) ([]any, bool)
}

var responseAdapters = []responseAdapter{
	{name: "results_object", extract: extractResultsObject},
	{name: "points_object", extract: extractPointsObject},
	{name: "result_array", extract: extractResultArray},
	{name: "plain_array", extract: extractPlainArray},
}

// normalizeResponse converts a provider-shaped search response into
// canonical results. A response with zero hits is valid and yields an
// empty slice; a response no adapter recognizes is a shape error.
func normalizeResponse(raw domain.RawIndexResult) ([]domain.RetrievedContext, error) {
	hits, adapterName, ok := extractHits(raw)
	if !ok {
		return nil, domain.WrapError(domain.ErrIndexShape, "normalize response", errNoAdapter)
	}

	out := make([]domain.RetrievedContext, 0, len(hits))
	for _, hit := range hits {
		out = append(out, normalizeHit(hit))
	}
	if len(out) > 0 {
		slog.Debug("index_response_normalized", "adapter", adapterName, "hits", len(out))
	}
	return out, nil
}

func extractHits(raw domain.RawIndexResult) ([]any, string, bool) {
	if raw == nil {
		return nil, "", false
	}
	for _, adapter := range responseAdapters {
		if hits, ok := adapter.extract(raw); ok {
			return hits, adapter.name, true
		}
	}
	return nil, "", false
}

func extractResultsObject(raw domain.RawIndexResult) ([]any, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	return asArray(m["results"])
}

// extractPointsObject matches responses carrying a points list, either at
// the top level or nested under a result envelope.
func extractPointsObject(raw domain.RawIndexResult) ([]any, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	if hits, ok := asArray(m["points"]); ok {
		return hits, true
	}
	if inner, ok := m["result"].(map[string]any); ok {
		return asArray(inner["points"])
	}
	return nil, false
}

func extractResultArray(raw domain.RawIndexResult) ([]any, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	return asArray(m["result"])
}

func extractPlainArray(raw domain.RawIndexResult) ([]any, bool) {
	return asArray(raw)
}

func asArray(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}

var errNoAdapter = errNoAdapterType{}

type errNoAdapterType struct{}

func (errNoAdapterType) Error() string { return "no response adapter matched" }

// hitKind is the closed set of per-hit shapes produced by classification.
// Every hit is classified exactly once; each kind has one explicit case.
type hitKind int

const (
	hitPair    hitKind = iota // two-element array: [payload, score]
	hitMapping                // object exposing payload/score keys
	hitProbed                 // object with fallback score keys (score_, similarity)
	hitUnknown                // nothing recognizable; degrades to zero values
)

func classifyHit(hit any) (hitKind, map[string]any, []any) {
	if arr, ok := hit.([]any); ok {
		return hitPair, nil, arr
	}
	m, ok := hit.(map[string]any)
	if !ok {
		return hitUnknown, nil, nil
	}
	if _, hasScore := m["score"]; hasScore {
		return hitMapping, m, nil
	}
	if _, hasPayload := m["payload"]; hasPayload {
		return hitMapping, m, nil
	}
	return hitProbed, m, nil
}

// normalizeHit never fails: a hit that cannot be decoded degrades to an
// empty payload and a zero score rather than aborting the retrieval.
func normalizeHit(hit any) domain.RetrievedContext {
	var rawPayload any
	var rawScore any

	kind, m, pair := classifyHit(hit)
	switch kind {
	case hitPair:
		if len(pair) > 0 {
			rawPayload = pair[0]
		}
		if len(pair) > 1 {
			rawScore = pair[1]
		}
	case hitMapping:
		rawScore = m["score"]
		if p, ok := m["payload"]; ok {
			rawPayload = p
		} else {
			rawPayload = m
		}
	case hitProbed:
		if v, ok := m["score_"]; ok {
			rawScore = v
		} else if v, ok := m["similarity"]; ok {
			rawScore = v
		}
		if p, ok := m["payload"]; ok {
			rawPayload = p
		} else {
			rawPayload = m
		}
	case hitUnknown:
		// zero values stand in for the whole hit
	}

	payload, degraded := coercePayload(rawPayload)
	result := domain.RetrievedContext{
		Score:           coerceScore(rawScore),
		Payload:         payload,
		PayloadDegraded: degraded,

		URL:            payloadString(payload, "url"),
		Title:          payloadString(payload, "title"),
		Content:        payloadString(payload, "content"),
		Headings:       payloadStrings(payload, "headings"),
		ChunkIndex:     payloadInt(payload, "chunk_index"),
		SourceDocument: payloadString(payload, "source_document"),
		Metadata:       payloadMap(payload, "metadata"),
	}
	return result
}

// coercePayload guarantees the mapping invariant: whatever the provider
// returned, the canonical payload is a map. Non-mapping payloads degrade
// to an empty map and are flagged for the validator.
func coercePayload(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, true
	case map[string]any:
		return v, false
	default:
		slog.Warn("payload_not_a_mapping", "type", typeName(raw))
		return map[string]any{}, true
	}
}

// coerceScore collapses whatever the provider returned into a float:
// sequences take their first numeric element, numeric strings parse,
// everything else is 0.0.
func coerceScore(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("score_not_numeric", "type", "string")
			return 0.0
		}
		return parsed
	case []any:
		for _, el := range v {
			switch n := el.(type) {
			case float64:
				return n
			case float32:
				return float64(n)
			case int:
				return float64(n)
			case int64:
				return float64(n)
			}
		}
		slog.Warn("score_sequence_has_no_numeric_element", "len", len(v))
		return 0.0
	case nil:
		return 0.0
	default:
		slog.Warn("score_not_numeric", "type", typeName(raw))
		return 0.0
	}
}

func payloadString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func payloadStrings(payload map[string]any, key string) []string {
	switch v := payload[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, el := range v {
			if s, ok := el.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func payloadMap(payload map[string]any, key string) map[string]any {
	m, _ := payload[key].(map[string]any)
	return m
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
