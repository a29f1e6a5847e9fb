package documents

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flowhq/ragchat/internal/domain"
	"github.com/flowhq/ragchat/internal/retrieval"
)

// Handler proxies document operations to the external retrieval service,
// preserving its status codes and {detail} error shape.
type Handler struct {
	client *retrieval.Client
	logger *zap.Logger
}

// NewHandler creates a new documents handler
func NewHandler(client *retrieval.Client, logger *zap.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// RegisterRoutes registers document routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.List)
	r.POST("", h.Upload)
	r.GET("/:id", h.Get)
	r.GET("/:id/content", h.Content)
	r.PATCH("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	docs, err := h.client.ListDocuments(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *Handler) Get(c *gin.Context) {
	doc, err := h.client.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Content(c *gin.Context) {
	content, err := h.client.GetDocumentContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}

func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}

	metadata := make(map[string]any)
	if metaStr := c.PostForm("metadata"); metaStr != "" {
		if err := json.Unmarshal([]byte(metaStr), &metadata); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid metadata JSON"})
			return
		}
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to read upload"})
		return
	}
	defer src.Close()

	doc, err := h.client.UploadDocument(c.Request.Context(), file.Filename, src, metadata)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) Update(c *gin.Context) {
	var req struct {
		Name     string         `json:"name" binding:"required"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	doc, err := h.client.UpdateDocument(c.Request.Context(), c.Param("id"), req.Name, req.Metadata)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.client.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
}

// writeError forwards upstream failures with their original status so the
// UI sees exactly what the retrieval service said.
func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "document not found"})
		return
	}
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		c.JSON(ue.Status, gin.H{"detail": ue.Detail})
		return
	}
	h.logger.Error("document proxy failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}
