package sitechat

import (
	"fmt"
	"strings"
)

// NoContextText stands in for retrieved context when retrieval found nothing.
const NoContextText = "No relevant information found in the knowledge base."

// FormatContext renders retrieved chunks as numbered sources in the order
// given. Chunks with blank content are skipped but keep their number.
func FormatContext(results []SearchResult) string {
	parts := make([]string, 0, len(results))
	for i, r := range results {
		if r.Chunk == nil || strings.TrimSpace(r.Chunk.Content) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Source %d]\n%s\n", i+1, r.Chunk.Content))
	}
	if len(parts) == 0 {
		return NoContextText
	}
	return strings.Join(parts, "\n")
}

// UserMessage renders the final user turn: the retrieved context followed
// by the question.
func (p *Prompt) UserMessage() string {
	return "Context:\n" + FormatContext(p.Context) + "\n\nQuestion: " + p.Question
}
