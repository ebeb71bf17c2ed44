// Package llm holds helpers shared by the completion service adapters.
package llm

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// maxExcerptChars bounds each document excerpt sent to a provider.
const maxExcerptChars = 600

// DefaultMaxTokens is used when the prompt does not cap the response.
const DefaultMaxTokens = 512

// UserMessage renders the question and its documents as a single user turn.
// Documents are numbered so the model can cite them as [1], [2], ...
func UserMessage(p driven.PromptContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", p.Question)

	if len(p.Documents) == 0 {
		b.WriteString("\nNo documents are available.\n")
		return b.String()
	}

	b.WriteString("\nDocuments:\n")
	for i, doc := range p.Documents {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, doc.Title)
		if doc.URL != "" {
			fmt.Fprintf(&b, "URL: %s\n", doc.URL)
		}
		if excerpt := truncate(strings.TrimSpace(doc.Excerpt), maxExcerptChars); excerpt != "" {
			b.WriteString(excerpt)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// MaxTokens returns the prompt's cap or DefaultMaxTokens.
func MaxTokens(p driven.PromptContext) int {
	if p.MaxTokens > 0 {
		return p.MaxTokens
	}
	return DefaultMaxTokens
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
