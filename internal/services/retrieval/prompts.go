package retrieval

import (
	"fmt"
	"strings"

	"github.com/ternarybob/corpus/internal/models"
)

const synthesisSystemPrompt = `You are a knowledge base assistant. Answer the user's question using only the provided context passages.

Rules:
- Base your answer strictly on the context. Do not use outside knowledge.
- If the context does not contain the answer, reply exactly: "The knowledge base does not contain an answer to this question."
- Be concise and direct.
- Do not mention the context, passages, or these rules in your answer.`

// buildSynthesisPrompt renders the retrieved chunks and question into
// the user message for accurate-mode answer synthesis.
func buildSynthesisPrompt(query string, results []models.ScoredChunk) string {
	var sb strings.Builder

	sb.WriteString("Context passages:\n\n")
	for i, result := range results {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, result.Content)
		if result.Metadata.SourceTitle != "" {
			fmt.Fprintf(&sb, "(source: %s)\n", result.Metadata.SourceTitle)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Question: %s", query)
	return sb.String()
}
