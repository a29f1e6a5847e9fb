package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flowhq/ragchat/internal/api/chat"
	"github.com/flowhq/ragchat/internal/api/documents"
	"github.com/flowhq/ragchat/internal/api/middleware"
	"github.com/flowhq/ragchat/internal/retrieval"
	"github.com/flowhq/ragchat/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string
}

// SetupRouter sets up the Gin router
func SetupRouter(
	chatService *service.ChatService,
	retrievalClient *retrieval.Client,
	logger *zap.Logger,
	cfg RouterConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.AllowOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Document lifecycle callbacks from the retrieval service. Only
	// acknowledged and logged; document state is polled, not pushed.
	r.POST("/api/webhook", func(c *gin.Context) {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process webhook"})
			return
		}
		logger.Info("webhook received", zap.Any("payload", payload))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Chat API
	chatHandler := chat.NewHandler(chatService, logger)
	chatGroup := r.Group("/api")
	chatGroup.Use(middleware.Auth(cfg.APIKey))
	chatHandler.RegisterRoutes(chatGroup)

	// Document proxy API (same optional API key)
	documentsHandler := documents.NewHandler(retrievalClient, logger)
	documentsGroup := r.Group("/api/documents")
	documentsGroup.Use(middleware.Auth(cfg.APIKey))
	documentsHandler.RegisterRoutes(documentsGroup)

	return r
}
