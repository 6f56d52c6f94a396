package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/apprentix/epa-tracker-api/internal/handler"
	"github.com/apprentix/epa-tracker-api/internal/middleware"
	"github.com/apprentix/epa-tracker-api/internal/models"
	"github.com/apprentix/epa-tracker-api/internal/repository"
	"github.com/apprentix/epa-tracker-api/internal/service"
	"github.com/apprentix/epa-tracker-api/pkg/cache"
	"github.com/apprentix/epa-tracker-api/pkg/config"
	"github.com/apprentix/epa-tracker-api/pkg/database"
	"github.com/apprentix/epa-tracker-api/pkg/logger"
	"github.com/apprentix/epa-tracker-api/pkg/mailer"
	corsmiddleware "github.com/apprentix/epa-tracker-api/pkg/middleware/cors"
	reqidmiddleware "github.com/apprentix/epa-tracker-api/pkg/middleware/requestid"
	"github.com/apprentix/epa-tracker-api/pkg/token"
)

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}

	recordRepo := repository.NewRecordRepository(db)
	userRepo := repository.NewUserRepository(db)

	validate := validator.New()
	signer := token.NewSigner(cfg.Tokens.Secret)
	mail := mailer.NewSMTP(cfg.Mail)

	accountSvc := service.NewAccountService(userRepo, signer, mail, validate, logr, service.AccountConfig{
		ActivationTTL: cfg.Tokens.ActivationTTL,
		BaseURL:       cfg.Mail.BaseURL,
	})
	authSvc := service.NewAuthService(userRepo, signer, mail, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		ResetTokenTTL:     cfg.Tokens.ResetTTL,
		BaseURL:           cfg.Mail.BaseURL,
	})
	recordSvc := service.NewRecordService(recordRepo, cacheSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(recordRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	exportSvc := service.NewExportService(recordRepo, logr)
	importSvc := service.NewImportService(recordRepo, cacheSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc, accountSvc)
	accountHandler := handler.NewAccountHandler(accountSvc)
	adminHandler := handler.NewAdminHandler(accountSvc)
	recordHandler := handler.NewRecordHandler(recordSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	importHandler := handler.NewImportHandler(importSvc)

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

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/activate/:token", authHandler.Activate)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	account := api.Group("/account", middleware.JWT(authSvc))
	account.PUT("/profile", accountHandler.UpdateProfile)
	account.DELETE("", accountHandler.DeleteAccount)

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/registrations", adminHandler.PendingRegistrations)
	admin.POST("/registrations/:id/approve", adminHandler.Approve)
	admin.POST("/registrations/:id/reject", adminHandler.Reject)

	records := api.Group("/records", middleware.JWT(authSvc))
	records.GET("", recordHandler.List)
	records.GET("/:id", recordHandler.Get)
	records.GET("/export/:format", exportHandler.Export)

	recordsAdmin := api.Group("/records", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	recordsAdmin.POST("", recordHandler.Create)
	recordsAdmin.PUT("/:id", recordHandler.Update)
	recordsAdmin.DELETE("/:id", recordHandler.Delete)
	recordsAdmin.POST("/import", importHandler.Import)

	api.GET("/dashboard", middleware.JWT(authSvc), dashboardHandler.Metrics)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
