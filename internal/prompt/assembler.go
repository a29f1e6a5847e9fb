// Package prompt builds the message sequence sent to an LLM provider.
// Assembly is a pure function of its inputs: identical history and chunks
// always yield byte-identical output.
package prompt

import (
	"strings"

	"github.com/flowhq/ragchat/internal/domain"
)

const instructionTemplate = `You are a helpful assistant that answers questions based on the provided context.

Formatting rules:
- Answer in Markdown.
- Use $...$ for inline math and $$...$$ for display math.
- Never expose internal document identifiers or chunk scores to the user.

If the context does not contain the information needed to answer, say
explicitly that no matching information was found. Do not invent an answer.

Relevant context:
`

// Assemble builds the prompt for one chat turn: a single system message
// carrying the instruction template plus the retrieved context, followed by
// the conversation history with any caller-supplied system messages
// stripped. Chunk texts are joined in the order the retrieval service
// ranked them; an empty chunk set still produces the template so the
// "no matching information" policy applies.
func Assemble(history []domain.Message, chunks []domain.RetrievedChunk) []domain.Message {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	context := strings.Join(texts, "\n\n")

	out := make([]domain.Message, 0, len(history)+1)
	out = append(out, domain.Message{
		Role:    domain.RoleSystem,
		Content: instructionTemplate + context,
	})
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}
