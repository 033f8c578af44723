package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"permit-agent/internal/ai"
	appsvc "permit-agent/internal/app"
	"permit-agent/internal/bootstrap"
	"permit-agent/internal/cache"
	"permit-agent/internal/repository"
	"permit-agent/internal/transport/http/handler"
)

// NewRouter wires repositories, services, and handlers into the gin engine.
func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)

	sessionRepo := repository.NewSessionRepository(app.DB)
	messageRepo := repository.NewMessageRepository(app.DB)
	documentRepo := repository.NewDocumentRepository(app.DB)

	auth := ai.Auth{
		APIKey:       cfg.LlamaStack.APIKey,
		ProviderData: cfg.LlamaStack.ProviderData,
	}

	registry := appsvc.NewRegistry(sessionRepo, messageRepo, auth, cfg.LlamaStack.BaseURL)
	uploadService := appsvc.NewUploadService(sessionRepo, documentRepo, cfg.Storage.PublicDir)
	agentService := appsvc.NewAgentService(registry, sessionRepo, messageRepo, uploadService, auth, cfg.LlamaStack.BaseURL)
	chatService := appsvc.NewChatService(registry, sessionRepo, messageRepo)

	var suggestionCache *cache.SuggestionCache
	if app.Redis != nil {
		ttl := time.Duration(cfg.Redis.SuggestionTTLSeconds) * time.Second
		suggestionCache = cache.NewSuggestionCache(app.Redis, ttl)
	}
	addressService := appsvc.NewAddressService(cfg.Smarty.AuthID, cfg.Smarty.AuthToken, suggestionCache)

	agentHandler := handler.NewAgentHandler(agentService)
	queryHandler := handler.NewQueryHandler(chatService, agentService)
	documentHandler := handler.NewDocumentHandler(uploadService)
	autocompleteHandler := handler.NewAutocompleteHandler(addressService)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = appsvc.MaxUploadSize

	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/address-autocomplete", autocompleteHandler.Lookup)
		api.POST("/initialize-agent", agentHandler.Initialize)
		api.GET("/initialize-agent/stream", agentHandler.Stream)
		api.POST("/documents/upload", documentHandler.Upload)
		api.GET("/documents/:sessionId", documentHandler.List)
		api.POST("/query", queryHandler.Query)
		api.POST("/evaluate", queryHandler.Evaluate)
		api.POST("/reset", queryHandler.Reset)
	}

	router.Static("/users", uploadService.UserFilesRoot())

	registerFrontend(router, cfg.Storage.DistDir)

	return router
}

// registerFrontend serves the built frontend when a dist directory exists,
// falling back to index.html for client-side routes. API misses always get a
// JSON 404.
func registerFrontend(router *gin.Engine, distDir string) {
	indexPath := filepath.Join(distDir, "index.html")
	hasDist := false
	if info, err := os.Stat(indexPath); err == nil && !info.IsDir() {
		hasDist = true
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"message": "Not found."})
			return
		}
		if !hasDist {
			c.JSON(http.StatusNotFound, gin.H{"message": "Not found."})
			return
		}
		requested := filepath.Join(distDir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(requested); err == nil && !info.IsDir() {
			c.File(requested)
			return
		}
		c.File(indexPath)
	})
}
