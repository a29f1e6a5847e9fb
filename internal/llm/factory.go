package llm

import "github.com/flowhq/ragchat/internal/domain"

// Keys holds the per-provider API keys available for a request.
type Keys struct {
	Groq   string
	Gemini string
}

// Factory builds a provider for a model name. Declared as a function type
// so orchestration tests can substitute a fake backend.
type Factory func(model string, keys Keys) (Provider, error)

// NewProvider is the default Factory. Unknown model names fall back to
// groq, matching the request contract's default.
func NewProvider(model string, keys Keys) (Provider, error) {
	switch model {
	case domain.ModelGemini:
		return NewGeminiProvider(keys.Gemini)
	default:
		return NewGroqProvider(keys.Groq)
	}
}
