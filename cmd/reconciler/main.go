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

	"github.com/Manchinn/cslogbook-reconciler/internal/handler"
	"github.com/Manchinn/cslogbook-reconciler/internal/middleware"
	"github.com/Manchinn/cslogbook-reconciler/internal/models"
	"github.com/Manchinn/cslogbook-reconciler/internal/repository"
	"github.com/Manchinn/cslogbook-reconciler/internal/scheduler"
	"github.com/Manchinn/cslogbook-reconciler/internal/service"
	"github.com/Manchinn/cslogbook-reconciler/pkg/cache"
	"github.com/Manchinn/cslogbook-reconciler/pkg/config"
	"github.com/Manchinn/cslogbook-reconciler/pkg/database"
	"github.com/Manchinn/cslogbook-reconciler/pkg/logger"
	reqidmiddleware "github.com/Manchinn/cslogbook-reconciler/pkg/middleware/requestid"
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, step cache disabled", "error", err)
		redisClient = nil
	}

	deadlineRepo := repository.NewDeadlineRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	stepRepo := repository.NewStepRepository(db)
	stateRepo := repository.NewWorkflowStateRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	runRepo := repository.NewSweepRunRepository(db)

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	metrics := service.NewMetricsService()
	resolver := service.NewMappingResolver()

	var catalog *service.StepCatalogService
	if cacheRepo != nil {
		catalog = service.NewStepCatalogService(stepRepo, cacheRepo, metrics, logr, cfg.Reconcile.StepCacheTTL)
	} else {
		catalog = service.NewStepCatalogService(stepRepo, nil, metrics, logr, cfg.Reconcile.StepCacheTTL)
	}

	notifier := service.NewNotificationService(notificationRepo, logr, service.NotificationServiceConfig{
		Workers:    cfg.Notification.Workers,
		MaxRetries: cfg.Notification.MaxRetries,
		RetryDelay: cfg.Notification.RetryDelay,
	})

	reconciliation := service.NewReconciliationService(deadlineRepo, stateRepo, resolver, catalog, notifier, runRepo, metrics, logr, service.ReconciliationServiceConfig{
		LookbackHours:      cfg.Reconcile.LookbackHours,
		TimezoneOffsetMins: cfg.Reconcile.TimezoneOffsetMins,
	})

	flagPass := service.NewFlagService(deadlineRepo, submissionRepo, stateRepo, runRepo, metrics, logr, service.FlagServiceConfig{
		TimezoneOffsetMins: cfg.Reconcile.TimezoneOffsetMins,
	})

	purge := service.NewPurgeService(projectRepo, runRepo, metrics, logr, service.PurgeServiceConfig{
		RetentionDays: cfg.Purge.RetentionDays,
	})

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier.Start(rootCtx)
	defer notifier.Stop()

	refZone := time.FixedZone("ref", cfg.Reconcile.TimezoneOffsetMins*60)
	sched := scheduler.New(logr, refZone)
	sched.Register(models.AgentReconciliation, cfg.Reconcile.CronSpec, reconciliation, cfg.Reconcile.RunOnStartup)
	sched.Register(models.AgentFlagPass, cfg.Reconcile.FlagCronSpec, flagPass, cfg.Reconcile.RunOnStartup)
	sched.Register(models.AgentPurge, cfg.Purge.CronSpec, purge, cfg.Purge.RunOnStartup)
	if err := sched.Start(rootCtx); err != nil {
		logr.Sugar().Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))

	health := handler.NewHealthHandler(metrics)
	sweeps := handler.NewSweepHandler(reconciliation, flagPass, purge, validator.New())

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", health.Prometheus)

	api := r.Group("/api/v1")
	api.GET("/sweeps/stats", sweeps.Stats)
	api.POST("/sweeps/trigger", middleware.AdminJWT(cfg.Auth.JWTSecret), sweeps.Trigger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown failed", "error", err)
	}
}
