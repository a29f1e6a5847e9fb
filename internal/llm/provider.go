// Package llm presents a uniform streaming-invocation contract over hosted
// chat-completion backends. A provider's stream is lazy, finite, and not
// restartable: it yields 0..N text fragments and then closes. Callers must
// never assume incremental delivery — a backend without native streaming
// emits the whole completion as a single fragment.
package llm

import (
	"context"

	"github.com/flowhq/ragchat/internal/domain"
)

// Chunk is one fragment of a provider stream. A non-nil Err terminates the
// stream; no further chunks follow it.
type Chunk struct {
	Content string
	Err     error
}

// Provider is the uniform invocation contract over chat-completion
// backends.
type Provider interface {
	// Invoke sends the conversation and returns a stream of text
	// fragments. It fails with *domain.ValidationError before any network
	// call when messages contain no user entry.
	Invoke(ctx context.Context, messages []domain.Message) (<-chan Chunk, error)
	// Name identifies the backend, e.g. "groq".
	Name() string
}

// DefaultSystemPrompt is used when the caller supplies no system message.
const DefaultSystemPrompt = "You are a helpful and friendly assistant. Keep your answers clear, " +
	"accurate, and to the point, with a professional but approachable tone."

// splitMessages extracts the effective system instruction and the
// user/assistant turns. Exactly one system instruction is used per
// invocation: the first system message found, verbatim, or the default
// persona when none exists. Additional system messages are dropped, not
// merged.
func splitMessages(messages []domain.Message) (system string, turns []domain.Message, err error) {
	system = DefaultSystemPrompt
	seenSystem := false
	hasUser := false

	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			if !seenSystem {
				system = m.Content
				seenSystem = true
			}
		case domain.RoleUser:
			hasUser = true
			turns = append(turns, m)
		case domain.RoleAssistant:
			turns = append(turns, m)
		}
	}

	if !hasUser {
		return "", nil, domain.NewValidationError("at least one user message is required")
	}
	return system, turns, nil
}
