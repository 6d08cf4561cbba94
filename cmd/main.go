package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/db"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/handlers"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/logger"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/middleware"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/repos"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/server"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/services"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	presenceTTL := utils.GetEnvAsInt("PRESENCE_TTL_SECONDS", 25, log)
	port := utils.GetEnv("PORT", "8080", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	styleRepo := repos.NewStyleRepo(thePG, log)
	sampleRepo := repos.NewSampleRequestRepo(thePG, log)
	assignmentRepo := repos.NewTeamAssignmentRepo(thePG, log)
	stageRecordRepo := repos.NewStageRecordRepo(thePG, log)
	roleOwnerRepo := repos.NewSampleRoleOwnerRepo(thePG, log)
	presenceRepo := repos.NewSamplePresenceRepo(thePG, log)
	stageAuditRepo := repos.NewStageAuditRepo(thePG, log)
	activityLogRepo := repos.NewActivityLogRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(log, jwtSecretKey)
	presenceService := services.NewPresenceService(thePG, log, presenceRepo, time.Duration(presenceTTL)*time.Second)
	presenceService.StartReaper(context.Background(), time.Minute)
	auditService := services.NewAuditService(thePG, log, stageAuditRepo, activityLogRepo, userRepo)
	stageService := services.NewStageService(thePG, log, sampleRepo, stageRecordRepo, roleOwnerRepo, assignmentRepo, presenceService, auditService)
	sampleService := services.NewSampleService(thePG, log, sampleRepo, styleRepo, assignmentRepo, stageRecordRepo, roleOwnerRepo, presenceRepo, stageService, auditService)

	// Handlers
	log.Info("Setting up Handlers from main...")
	sampleHandler := handlers.NewSampleHandler(sampleService, auditService)
	stageHandler := handlers.NewStageHandler(stageService, auditService)
	presenceHandler := handlers.NewPresenceHandler(presenceService)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:  authMiddleware,
		SampleHandler:   sampleHandler,
		StageHandler:    stageHandler,
		PresenceHandler: presenceHandler,
		AuditHandler:    auditHandler,
	})

	log.Info("Starting server...", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
