package api

import (
	"github.com/danylo/tubegems/internal/api/handler"
	"github.com/danylo/tubegems/internal/api/middleware"
	"github.com/danylo/tubegems/internal/config"
	"github.com/danylo/tubegems/internal/logger"
	"github.com/danylo/tubegems/internal/repository"
	"github.com/danylo/tubegems/internal/service"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	gemsService *service.GemsService,
	insightRepo *repository.InsightRepository,
	cfg *config.Config,
	log *logger.Logger,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	gemsHandler := handler.NewGemsHandler(gemsService)
	insightHandler := handler.NewInsightHandler(insightRepo)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Hidden-gem search
		v1.GET("/gems/search", gemsHandler.SearchGet)
		v1.POST("/gems/search", gemsHandler.Search)

		// Persisted insights
		v1.GET("/insights", insightHandler.List)
		v1.GET("/insights/export", insightHandler.Export)
		v1.GET("/insights/:video_id", insightHandler.Get)
	}

	return r
}
