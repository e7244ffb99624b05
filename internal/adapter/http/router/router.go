package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/winisorts/classifier-api/internal/adapter/http/handler"
	"github.com/winisorts/classifier-api/internal/adapter/http/middleware"
	"github.com/winisorts/classifier-api/internal/adapter/repository/postgres"
	"github.com/winisorts/classifier-api/internal/domain/repository"
	"github.com/winisorts/classifier-api/internal/domain/service"
	"github.com/winisorts/classifier-api/internal/infrastructure/config"
	"github.com/winisorts/classifier-api/internal/usecase"
)

// Deps are the long-lived collaborators the routes are built from.
// DB, Redis and Cache are optional.
type Deps struct {
	Config *config.Config
	Bundle *service.Bundle
	Cache  repository.ClassificationCache
	DB     *gorm.DB
	Redis  *redis.Client
	Logger *zap.Logger
}

// Setup creates and configures the Gin router
func Setup(d Deps) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(d.Logger))
	router.Use(middleware.Recovery(d.Logger))
	router.Use(middleware.CORS())
	if d.Config.Metrics.Enabled {
		router.Use(middleware.Metrics())
	}

	// Health endpoints
	healthHandler := handler.NewHealthHandler(d.Bundle, d.DB, d.Redis)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Prometheus metrics
	if d.Config.Metrics.Enabled {
		router.GET(d.Config.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// Initialize usecases
	classifyUC := usecase.NewClassifyUsecase(d.Bundle, d.Cache, usecase.ClassifyOptions{
		ParallelHeads:  d.Config.Model.ParallelHeads,
		CacheNamespace: d.Config.Cache.Namespace,
	})

	// Classification
	classifyHandler := handler.NewClassifyHandler(classifyUC)
	router.POST("/classify", classifyHandler.Classify)

	// API v1 routes
	if d.DB != nil {
		paperUC := usecase.NewPaperUsecase(postgres.NewPaperRepository(d.DB), classifyUC)
		paperHandler := handler.NewPaperHandler(paperUC)

		v1 := router.Group("/api/v1")
		{
			// Paper library routes
			papers := v1.Group("/papers")
			{
				papers.POST("", paperHandler.CreatePaper)
				papers.GET("", paperHandler.ListPapers)
				papers.GET("/:id", paperHandler.GetPaper)
			}
		}
	}

	return router
}
