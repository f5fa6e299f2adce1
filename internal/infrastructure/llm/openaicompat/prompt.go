package openaicompat

import (
	"fmt"
	"strings"

	"github.com/imelnikov/bookrag/internal/core/domain"
)

const answerSystemPrompt = `You are a teaching assistant for a robotics textbook. Answer questions using ONLY the provided excerpts from the book. If the excerpts do not contain the answer, say so explicitly instead of guessing. Cite sections by their titles when helpful. Keep answers concise and technically precise.`

const fallbackSystemPrompt = `You are a teaching assistant for a robotics textbook. No relevant excerpts were found for this question. Briefly tell the reader that the book does not appear to cover it, and suggest which general topics from a robotics curriculum might be related. Do not invent citations or page references.`

// Excerpts longer than this add latency without improving answers.
const maxExcerptChars = 1500

func buildAnswerPrompt(question string, contexts []domain.RankedContext) string {
	var b strings.Builder

	b.WriteString("Book excerpts:\n\n")
	for i, ctx := range contexts {
		title := ctx.Title
		if title == "" {
			title = "Untitled section"
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, title)
		if len(ctx.Headings) > 0 {
			fmt.Fprintf(&b, " > %s", strings.Join(ctx.Headings, " > "))
		}
		if ctx.URL != "" {
			fmt.Fprintf(&b, " (%s)", ctx.URL)
		}
		b.WriteString("\n")
		b.WriteString(trimExcerpt(ctx.Content))
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func trimExcerpt(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= maxExcerptChars {
		return content
	}
	return content[:maxExcerptChars] + "..."
}
