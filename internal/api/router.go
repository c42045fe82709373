package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jhart/medialens/internal/api/handler"
	"github.com/jhart/medialens/internal/api/middleware"
	"github.com/jhart/medialens/internal/config"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	uploadHandler *handler.UploadHandler,
	searchHandler *handler.SearchHandler,
	mediaHandler *handler.MediaHandler,
	cfg *config.ServerConfig,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Upload + analyze
		v1.POST("/upload/media", uploadHandler.Upload)

		// Keyword search
		v1.POST("/search/media", searchHandler.Search)

		// RAG query
		v1.POST("/rag/query", searchHandler.RAGQuery)

		// Stored records
		v1.GET("/media", mediaHandler.List)

		// Stats
		v1.GET("/stats", mediaHandler.Stats)
	}

	return r
}
