package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flowhq/ragchat/internal/domain"
	"github.com/flowhq/ragchat/internal/service"
)

// Handler handles chat API requests
type Handler struct {
	chatService *service.ChatService
	logger      *zap.Logger
}

// NewHandler creates a new chat handler
func NewHandler(chatService *service.ChatService, logger *zap.Logger) *Handler {
	return &Handler{chatService: chatService, logger: logger}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chat", h.Chat)
	r.DELETE("/chat", h.DeleteChat)
	r.GET("/chat/:id", h.GetChat)
	r.GET("/history", h.History)
}

// Chat runs one chat turn and streams the answer back as a chunked text
// body. Errors are returned as JSON before the first byte of the answer;
// once streaming has begun the transcript save can no longer affect the
// response.
func (h *Handler) Chat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")

	flusher, _ := c.Writer.(http.Flusher)
	streamed := false

	err := h.chatService.StreamChat(c.Request.Context(), &req, func(fragment string) error {
		if _, err := c.Writer.WriteString(fragment); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		streamed = true
		return nil
	})
	if err != nil {
		if streamed {
			// The client already has partial output; nothing sane to
			// send besides closing the stream.
			h.logger.Error("stream aborted mid-response", zap.Error(err))
			return
		}
		status := statusForError(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
}

// DeleteChat deletes a chat by id, taken from the JSON body or the "id"
// query parameter.
func (h *Handler) DeleteChat(c *gin.Context) {
	var req domain.DeleteChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.ID = c.Query("id")
	}
	if req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat id is required"})
		return
	}

	if err := h.chatService.DeleteChat(c.Request.Context(), req.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// GetChat returns a chat transcript by id.
func (h *Handler) GetChat(c *gin.Context) {
	chat, err := h.chatService.GetChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, chat)
}

// History returns all chats, newest first.
func (h *Handler) History(c *gin.Context) {
	chats, err := h.chatService.ListChats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if chats == nil {
		chats = []*domain.Chat{}
	}

	c.JSON(http.StatusOK, chats)
}

// statusForError maps the error taxonomy onto HTTP statuses: validation
// problems are the caller's fault, key-related provider failures read as
// auth errors, everything else is a server failure.
func statusForError(err error) int {
	if domain.IsValidation(err) {
		if strings.Contains(err.Error(), "API key") {
			return http.StatusUnauthorized
		}
		return http.StatusBadRequest
	}
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		if pe.Status == http.StatusUnauthorized || pe.Status == http.StatusForbidden ||
			strings.Contains(strings.ToLower(pe.Message), "api key") {
			return http.StatusUnauthorized
		}
	}
	return http.StatusInternalServerError
}
