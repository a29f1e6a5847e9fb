package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flowhq/ragchat/internal/domain"
)

const (
	groqBaseURL   = "https://api.groq.com/openai/v1"
	groqModel     = "mixtral-8x7b-32768"
	groqKeyPrefix = "gsk_"
)

// GroqProvider streams completions from Groq's OpenAI-compatible API.
// Fragments are forwarded as the model produces them.
type GroqProvider struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// GroqOption configures a GroqProvider.
type GroqOption func(*GroqProvider)

// WithGroqBaseURL overrides the API endpoint, mainly for tests.
func WithGroqBaseURL(u string) GroqOption {
	return func(p *GroqProvider) { p.baseURL = u }
}

// NewGroqProvider validates the key format and builds a provider. A key
// that does not carry the expected prefix is rejected here, before any
// request is made.
func NewGroqProvider(apiKey string, opts ...GroqOption) (*GroqProvider, error) {
	if !strings.HasPrefix(apiKey, groqKeyPrefix) {
		return nil, domain.NewValidationError("invalid or missing Groq API key")
	}
	p := &GroqProvider{
		apiKey:  apiKey,
		baseURL: groqBaseURL,
		httpc:   &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *GroqProvider) Name() string { return domain.ModelGroq }

type groqChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatRequest struct {
	Model       string            `json:"model"`
	Messages    []groqChatMessage `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
	Stream      bool              `json:"stream"`
}

type groqStreamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Invoke sends the conversation with stream enabled and forwards delta
// fragments from the SSE response until the [DONE] marker.
func (p *GroqProvider) Invoke(ctx context.Context, messages []domain.Message) (<-chan Chunk, error) {
	system, turns, err := splitMessages(messages)
	if err != nil {
		return nil, err
	}

	chatMessages := make([]groqChatMessage, 0, len(turns)+1)
	chatMessages = append(chatMessages, groqChatMessage{Role: domain.RoleSystem, Content: system})
	for _, m := range turns {
		chatMessages = append(chatMessages, groqChatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(groqChatRequest{
		Model:       groqModel,
		Messages:    chatMessages,
		Temperature: 0.7,
		MaxTokens:   1000,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode groq request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Provider: p.Name(), Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, providerErrorFromResponse(p.Name(), resp)
	}

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var event groqStreamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue // skip malformed keep-alive lines
			}
			if len(event.Choices) == 0 {
				continue
			}
			content := event.Choices[0].Delta.Content
			if content == "" {
				continue
			}
			select {
			case ch <- Chunk{Content: content}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			ch <- Chunk{Err: &domain.ProviderError{Provider: p.Name(), Message: err.Error()}}
		}
	}()

	return ch, nil
}

// providerErrorFromResponse drains an error response into a ProviderError,
// keeping the upstream message when one is present.
func providerErrorFromResponse(provider string, resp *http.Response) error {
	msg := resp.Status
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	if err == nil && len(raw) > 0 {
		var errBody struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error.Message != "" {
			msg = errBody.Error.Message
		}
	}
	return &domain.ProviderError{Provider: provider, Status: resp.StatusCode, Message: msg}
}
