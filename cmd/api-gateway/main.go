package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/educmun/creche-api/api/swagger"
	"github.com/educmun/creche-api/internal/handler"
	"github.com/educmun/creche-api/internal/middleware"
	"github.com/educmun/creche-api/internal/repository"
	"github.com/educmun/creche-api/internal/service"
	"github.com/educmun/creche-api/pkg/cache"
	"github.com/educmun/creche-api/pkg/config"
	"github.com/educmun/creche-api/pkg/database"
	"github.com/educmun/creche-api/pkg/logger"
	corsmiddleware "github.com/educmun/creche-api/pkg/middleware/cors"
	reqidmiddleware "github.com/educmun/creche-api/pkg/middleware/requestid"
)

// @title Creche Admission API
// @version 1.0.0
// @description Enrollment lifecycle and annual transition engine for public childcare seats
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	applicantRepo := repository.NewApplicantRepository(db)
	seatRepo := repository.NewSeatRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	machine := service.NewStatusMachine(nil)
	ranker := service.NewQueueRanker()
	deadlines := service.NewDeadlineMonitor(nil, cfg.Deadline.TickInterval)
	ages := service.NewAgeEligibilityCalculator(nil, cfg.Planning.CutoffMonth, cfg.Planning.CutoffDay, cfg.Waitlist.MinimumAgeMonths)
	metricsSvc := service.NewMetricsService()

	applicantSvc := service.NewApplicantService(
		applicantRepo, seatRepo, auditRepo, cacheRepo,
		machine, ranker, deadlines, ages,
		nil, logr, nil,
		cfg.Waitlist.CacheTTL, cfg.Waitlist.DefaultDeadlineDays,
	)
	planningSvc := service.NewPlanningService(applicantRepo, cacheRepo, ages, cfg.Planning.DraftKeyPrefix, cfg.Planning.DraftTTL, logr)
	executor := service.NewTransitionExecutor(planningSvc, applicantRepo, auditRepo, cacheRepo, logr, nil, cfg.Waitlist.DefaultDeadlineDays)
	auditSvc := service.NewAuditService(auditRepo)
	seatSvc := service.NewSeatService(seatRepo)

	applicantHandler := handler.NewApplicantHandler(applicantSvc, deadlines)
	planningHandler := handler.NewPlanningHandler(planningSvc, executor, metricsSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	seatHandler := handler.NewSeatHandler(seatSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Actor(cfg.Auth.Secret))
	{
		api.GET("/applicants", applicantHandler.List)
		api.POST("/applicants", applicantHandler.Register)
		api.GET("/applicants/:id", applicantHandler.Get)
		api.GET("/applicants/:id/deadline/stream", applicantHandler.DeadlineStream)
		api.POST("/applicants/:id/call-up", applicantHandler.CallUp)
		api.POST("/applicants/:id/confirm", applicantHandler.Confirm)
		api.POST("/applicants/:id/refuse", applicantHandler.Refuse)
		api.POST("/applicants/:id/requeue", applicantHandler.Requeue)
		api.POST("/applicants/:id/withdraw", applicantHandler.Withdraw)
		api.POST("/applicants/:id/transfer-request", applicantHandler.TransferRequest)
		api.POST("/applicants/:id/reactivate", applicantHandler.Reactivate)

		api.GET("/waitlist", applicantHandler.Waitlist)
		api.GET("/seats", seatHandler.List)
		api.GET("/audit", auditHandler.List)

		api.POST("/planning/session", planningHandler.StartSession)
		api.GET("/planning/session", planningHandler.Session)
		api.PUT("/planning/entries/:id/status", planningHandler.SetStatus)
		api.PUT("/planning/entries/:id/seat", planningHandler.SetSeat)
		api.PUT("/planning/bulk/status", planningHandler.BulkSetStatus)
		api.PUT("/planning/bulk/seat", planningHandler.BulkSetSeat)
		api.POST("/planning/save", planningHandler.Save)
		api.POST("/planning/discard", planningHandler.Discard)
		api.POST("/planning/execute", planningHandler.Execute)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
