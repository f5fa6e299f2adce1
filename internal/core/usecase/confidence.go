package usecase

import "github.com/imelnikov/bookrag/internal/core/domain"

// estimateConfidence aggregates retrieved scores into a single confidence
// value for the generated answer: a mix of average similarity (weighted
// 60%) and context count saturating at five (weighted 40%), capped at 1.0.
func estimateConfidence(contexts []domain.RankedContext) float64 {
	if len(contexts) == 0 {
		return 0.0
	}

	var sum float64
	for _, ctx := range contexts {
		sum += ctx.Score
	}
	avg := sum / float64(len(contexts))

	// Cosine scores on this corpus typically land in 0..0.5, hence the
	// doubling before the cap.
	scoreFactor := min(avg*2.0, 1.0)
	countFactor := min(float64(len(contexts))/5.0, 1.0)

	return min(scoreFactor*0.6+countFactor*0.4, 1.0)
}

// assessRetrievalQuality derives score statistics over a retrieved set.
// Diagnostic only; nothing in the pipeline branches on it.
func assessRetrievalQuality(contexts []domain.RankedContext) domain.RetrievalQuality {
	quality := domain.RetrievalQuality{
		ContextCount: len(contexts),
		HasContent:   len(contexts) > 0,
	}
	if len(contexts) == 0 {
		return quality
	}

	quality.MinScore = contexts[0].Score
	quality.MaxScore = contexts[0].Score
	quality.HasValidSources = true

	var sum float64
	for _, ctx := range contexts {
		sum += ctx.Score
		if ctx.Score < quality.MinScore {
			quality.MinScore = ctx.Score
		}
		if ctx.Score > quality.MaxScore {
			quality.MaxScore = ctx.Score
		}
		quality.TotalContentLength += len(ctx.Content)
		if ctx.URL == "" {
			quality.HasValidSources = false
		}
	}
	quality.AvgScore = sum / float64(len(contexts))

	var variance float64
	for _, ctx := range contexts {
		delta := ctx.Score - quality.AvgScore
		variance += delta * delta
	}
	quality.ScoreVariance = variance / float64(len(contexts))

	return quality
}
