package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowhq/ragchat/internal/config"
	"github.com/flowhq/ragchat/internal/domain"
	"github.com/flowhq/ragchat/internal/llm"
	"github.com/flowhq/ragchat/internal/prompt"
	"github.com/flowhq/ragchat/internal/retrieval"
)

// failurePolicy names how an upstream failure affects the chat turn.
type failurePolicy int

const (
	// failOpen degrades the turn and continues.
	failOpen failurePolicy = iota
	// failClosed aborts the turn.
	failClosed
)

// The two policies are deliberately asymmetric: a failed retrieval still
// yields an answer without context, while a failed generation has nothing
// to salvage.
const (
	retrievalPolicy  = failOpen
	generationPolicy = failClosed
)

// ChatStore is the persistence surface the orchestration needs.
type ChatStore interface {
	Save(ctx context.Context, chat *domain.Chat) error
	Get(ctx context.Context, id string) (*domain.Chat, error)
	List(ctx context.Context) ([]*domain.Chat, error)
	Delete(ctx context.Context, id string) error
}

// ChatService orchestrates one chat turn: validate, retrieve context,
// assemble the prompt, invoke the provider, stream the answer, persist the
// transcript.
type ChatService struct {
	cfg       *config.Config
	retriever retrieval.Retriever
	providers llm.Factory
	store     ChatStore
	logger    *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	cfg *config.Config,
	retriever retrieval.Retriever,
	providers llm.Factory,
	store ChatStore,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		cfg:       cfg,
		retriever: retriever,
		providers: providers,
		store:     store,
		logger:    logger,
	}
}

// StreamChat runs one chat turn, calling onFragment for every text fragment
// as it arrives from the provider. The full text is accumulated server-side
// and the transcript is persisted after the stream closes; a persistence
// failure is logged but never unwinds the answer the client already
// received.
func (s *ChatService) StreamChat(ctx context.Context, req *domain.ChatRequest, onFragment func(string) error) error {
	// Validating
	if req.ID == "" {
		return domain.NewValidationError("chat id is required")
	}
	if len(req.Messages) == 0 {
		return domain.NewValidationError("messages must not be empty")
	}
	lastUser := domain.LastUserMessage(req.Messages)
	if lastUser == nil {
		return domain.NewValidationError("at least one user message is required")
	}

	provider, err := s.provider(req.Data)
	if err != nil {
		return err
	}

	// Retrieving
	chunks := s.retrieveContext(ctx, lastUser.Content)

	// Assembling + Invoking
	messages := prompt.Assemble(req.Messages, chunks)
	stream, err := provider.Invoke(ctx, messages)
	if err != nil && generationPolicy == failClosed {
		// No partial answer is salvageable without the model.
		return err
	}

	// Streaming: forward each fragment immediately, accumulate the full
	// text for persistence.
	var answer strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return chunk.Err
		}
		answer.WriteString(chunk.Content)
		if err := onFragment(chunk.Content); err != nil {
			return err
		}
	}

	// Persisting
	s.persistTurn(ctx, req, answer.String())
	return nil
}

// provider resolves the backend for a request, falling back to configured
// keys when the request carries none. Key format problems surface as
// validation errors before any upstream call.
func (s *ChatService) provider(data *domain.ChatData) (llm.Provider, error) {
	model := s.cfg.LLM.DefaultModel
	keys := llm.Keys{Groq: s.cfg.LLM.GroqKey, Gemini: s.cfg.LLM.GeminiKey}
	if data != nil {
		if data.Model != "" {
			model = data.Model
		}
		if data.GroqKey != "" {
			keys.Groq = data.GroqKey
		}
		if data.GeminiKey != "" {
			keys.Gemini = data.GeminiKey
		}
	}
	return s.providers(model, keys)
}

// retrieveContext queries the retrieval service for the user's latest
// message. Failures degrade to an empty chunk set under retrievalPolicy:
// availability of a degraded answer wins over completeness.
func (s *ChatService) retrieveContext(ctx context.Context, query string) []domain.RetrievedChunk {
	chunks, err := s.retriever.Retrieve(ctx, query, retrieval.RetrieveOptions{
		Rerank: s.cfg.Retrieval.Rerank,
		TopK:   s.cfg.Retrieval.TopK,
	})
	if err != nil {
		if retrievalPolicy == failOpen {
			s.logger.Warn("retrieval failed, continuing without context", zap.Error(err))
			return nil
		}
		return nil
	}
	return chunks
}

// persistTurn saves history + [userMessage, assistantMessage] as a unit.
// The request's message list already ends with the new user message, so
// only the assistant message is appended here.
func (s *ChatService) persistTurn(ctx context.Context, req *domain.ChatRequest, answer string) {
	now := time.Now()
	messages := make([]domain.Message, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		messages = append(messages, m)
	}
	messages = append(messages, domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   answer,
		CreatedAt: now,
	})

	chat, err := s.store.Get(ctx, req.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("failed to load chat for save", zap.String("chat_id", req.ID), zap.Error(err))
		return
	}
	if chat == nil {
		chat = &domain.Chat{ID: req.ID}
	}
	chat.Messages = messages

	if err := s.store.Save(ctx, chat); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Warn("concurrent writer updated chat, transcript not saved",
				zap.String("chat_id", req.ID))
			return
		}
		s.logger.Error("failed to save chat", zap.String("chat_id", req.ID), zap.Error(err))
	}
}

// GetChat returns a chat transcript by id.
func (s *ChatService) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	return s.store.Get(ctx, id)
}

// ListChats returns all chats, newest first.
func (s *ChatService) ListChats(ctx context.Context) ([]*domain.Chat, error) {
	return s.store.List(ctx)
}

// DeleteChat removes a chat by id.
func (s *ChatService) DeleteChat(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
