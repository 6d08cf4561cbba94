package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/handlers"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/middleware"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/utils"
)

type RouterConfig struct {
	AuthMiddleware  *middleware.AuthMiddleware
	SampleHandler   *handlers.SampleHandler
	StageHandler    *handlers.StageHandler
	PresenceHandler *handlers.PresenceHandler
	AuditHandler    *handlers.AuditHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := strings.Split(utils.GetEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173", nil), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Samples
	api.POST("/samples", cfg.SampleHandler.Create)
	api.GET("/samples", cfg.SampleHandler.List)
	api.GET("/samples/:sampleId", cfg.SampleHandler.Get)
	api.GET("/samples/:sampleId/full", cfg.SampleHandler.GetFull)
	api.PUT("/samples/:sampleId", cfg.SampleHandler.Update)
	api.DELETE("/samples/:sampleId", cfg.SampleHandler.Delete)

	// Stages
	api.GET("/samples/:sampleId/stages", cfg.StageHandler.GetStages)
	api.PUT("/samples/:sampleId/stages", cfg.StageHandler.UpdateStage)
	api.PATCH("/samples/:sampleId/stages", cfg.StageHandler.UpdateStage)

	// Presence
	api.POST("/samples/:sampleId/presence/heartbeat", cfg.PresenceHandler.Heartbeat)
	api.POST("/samples/:sampleId/presence/release", cfg.PresenceHandler.Release)
	api.GET("/presence", cfg.PresenceHandler.ListActive)

	// Audit
	api.GET("/samples/:sampleId/history", cfg.AuditHandler.SampleHistory)
	api.GET("/audit/logs", cfg.AuditHandler.ListActivity)

	return router
}
