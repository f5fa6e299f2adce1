package usecase

import (
	"fmt"
	"strings"

	"github.com/imelnikov/bookrag/internal/core/domain"
)

var requiredPayloadFields = []string{
	"url", "title", "content", "headings", "chunk_index", "source_document", "metadata",
}

var acceptedURLPrefixes = []string{
	"http://", "https://", "/", "#", "mailto:", "tel:",
}

// validateMetadata checks the stored payload of a retrieved hit against
// the collection schema. It is pure and total: every input, however
// malformed, produces a report. Findings are observability signals; they
// never fail the retrieval.
func validateMetadata(result domain.RetrievedContext) domain.ValidationReport {
	report := domain.ValidationReport{Valid: true}

	if result.PayloadDegraded {
		report.Valid = false
		report.Errors = append(report.Errors, "Payload must be a dictionary")
	} else {
		for _, field := range requiredPayloadFields {
			value, present := result.Payload[field]
			if !present {
				report.Valid = false
				report.Errors = append(report.Errors, fmt.Sprintf("Missing required payload field: %s", field))
				continue
			}
			if msg := checkPayloadFieldType(field, value); msg != "" {
				report.Valid = false
				report.Errors = append(report.Errors, msg)
			}
		}
	}

	report.Warnings = append(report.Warnings, softWarnings(result)...)
	return report
}

func checkPayloadFieldType(field string, value any) string {
	switch field {
	case "url", "title", "content", "source_document":
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("Payload field '%s' must be a string", field)
		}
	case "headings":
		if !isStringList(value) {
			return "Payload field 'headings' must be a list of strings"
		}
	case "chunk_index":
		idx, ok := asInteger(value)
		if !ok {
			return "Payload field 'chunk_index' must be an integer"
		}
		if idx < 0 {
			return "Payload field 'chunk_index' must be non-negative"
		}
	case "metadata":
		if _, ok := value.(map[string]any); !ok {
			return "Payload field 'metadata' must be a dictionary"
		}
	}
	return ""
}

func softWarnings(result domain.RetrievedContext) []string {
	var warnings []string

	if result.URL != "" && !hasAcceptedPrefix(result.URL) {
		warnings = append(warnings, fmt.Sprintf("URL may not be properly formatted: %s", truncateForLog(result.URL, 50)))
	}
	if len(result.Title) > 500 {
		warnings = append(warnings, "Title appears to be excessively long")
	}
	if strings.TrimSpace(result.Content) != "" && len(result.Content) < 10 {
		warnings = append(warnings, "Content appears to be very short")
	}
	return warnings
}

func hasAcceptedPrefix(url string) bool {
	for _, prefix := range acceptedURLPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

func isStringList(value any) bool {
	switch v := value.(type) {
	case []string:
		return true
	case []any:
		for _, el := range v {
			if _, ok := el.(string); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func asInteger(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		// JSON decoding yields float64; accept only whole values.
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func truncateForLog(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
