package usecase

import "strings"

const (
	minTermLength = 3
	termBoost     = 0.2
	maxScore      = 1.0
)

const termPunctuation = `'".,!?()[]{}`

// queryTerms tokenizes a query into distinct lexical terms: whitespace
// split, lowercased, surrounding punctuation stripped, shorter terms
// dropped.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		term := strings.Trim(field, termPunctuation)
		if len(term) < minTermLength {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}

// boostScore compensates for embedding models that under-weight exact
// keyword matches: each distinct query term found in the content or title
// adds 20% to the vector similarity, capped at 1.0. Zero matches leave
// the score untouched. The transform is deterministic and stateless.
func boostScore(score float64, content, title string, terms []string) float64 {
	if len(terms) == 0 {
		return score
	}

	contentLower := strings.ToLower(content)
	titleLower := strings.ToLower(title)

	matched := 0
	for _, term := range terms {
		if strings.Contains(contentLower, term) || strings.Contains(titleLower, term) {
			matched++
		}
	}
	if matched == 0 {
		return score
	}

	boosted := score * (1.0 + float64(matched)*termBoost)
	return min(boosted, maxScore)
}
