package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-analytics-api/api/swagger"
	"github.com/noah-isme/sma-analytics-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-analytics-api/internal/middleware"
	"github.com/noah-isme/sma-analytics-api/internal/models"
	"github.com/noah-isme/sma-analytics-api/internal/repository"
	"github.com/noah-isme/sma-analytics-api/internal/service"
	"github.com/noah-isme/sma-analytics-api/pkg/cache"
	"github.com/noah-isme/sma-analytics-api/pkg/config"
	"github.com/noah-isme/sma-analytics-api/pkg/database"
	"github.com/noah-isme/sma-analytics-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-analytics-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-analytics-api/pkg/middleware/requestid"
)

// @title SMA Analytics API
// @version 1.0.0
// @description Role scoped analytics dashboards for administrators, teachers, students and parents
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	var cacheRepo service.CacheRepository
	if cfg.Dashboard.CacheEnabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("dashboard cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(redisClient, cfg.Redis.KeyPrefix, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			checks["cache"] = repo.Ping
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cacheRepo != nil)

	membershipRepo := repository.NewMembershipRepository(db)
	scopeSvc := service.NewScopeService(membershipRepo, logr)
	collectorSvc := service.NewCollectorService(repository.NewAnalyticsRepository(db), metricsSvc, logr, cfg.Analytics.CollectorTimeout)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Scopes:     scopeSvc,
		Collectors: collectorSvc,
		Enrolment:  membershipRepo,
		Cache:      cacheSvc,
		Metrics:    metricsSvc,
		Validator:  validate,
		Logger:     logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:               cfg.Dashboard.CacheTTL,
			Location:               cfg.Analytics.Location(),
			AtRiskAttendanceRate:   cfg.Analytics.AtRiskAttendanceRate,
			PassThreshold:          cfg.Analytics.PassThreshold,
			RecentActivityLimit:    cfg.Analytics.RecentActivityLimit,
			UpcomingDeadlinesLimit: cfg.Analytics.UpcomingDeadlinesLimit,
		},
	})
	exportSvc := service.NewExportService(dashboardSvc, validate, logr, nil, nil)
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Leeway: 30 * time.Second})

	analyticsHandler := handler.NewAnalyticsHandler(dashboardSvc, exportSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	analytics := api.Group("/analytics")
	analytics.Use(internalmiddleware.WithResponseMeta(), internalmiddleware.JWT(tokenSvc))
	{
		analytics.GET("/dashboard", analyticsHandler.Dashboard)
		analytics.GET("/dashboard/export", analyticsHandler.Export)
		analytics.GET("/system", internalmiddleware.RequireRoles(models.RoleAdmin), analyticsHandler.System)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
