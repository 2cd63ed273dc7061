package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/face-attendance-api/api/swagger"
	"github.com/noah-isme/face-attendance-api/internal/handler"
	"github.com/noah-isme/face-attendance-api/internal/middleware"
	"github.com/noah-isme/face-attendance-api/internal/notify"
	"github.com/noah-isme/face-attendance-api/internal/repository"
	"github.com/noah-isme/face-attendance-api/internal/service"
	"github.com/noah-isme/face-attendance-api/internal/vision"
	"github.com/noah-isme/face-attendance-api/pkg/cache"
	"github.com/noah-isme/face-attendance-api/pkg/config"
	"github.com/noah-isme/face-attendance-api/pkg/database"
	"github.com/noah-isme/face-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/face-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/face-attendance-api/pkg/middleware/requestid"
	"github.com/noah-isme/face-attendance-api/pkg/storage"
)

// @title Face Attendance API
// @version 0.1.0
// @description Face recognition attendance service with enrollment, liveness checks and reporting
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis only backs the duplicate-frame debounce; the service runs
	// without it.
	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, debounce disabled", "error", err)
		rdb = nil
	}

	sampleStore, err := vision.NewSampleStore(cfg.Engine.TrainingDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init sample store", "error", err)
	}
	modelStore, err := vision.NewModelStore(cfg.Engine.ModelPath)
	if err != nil {
		logr.Sugar().Fatalw("failed to init model store", "error", err)
	}
	if err := modelStore.Load(); err != nil {
		logr.Sugar().Fatalw("failed to load recognizer model", "error", err)
	}
	engine := vision.NewClient(cfg.Engine.BaseURL, cfg.Engine.Timeout)

	identityRepo := repository.NewIdentityRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(cfg.Admin, cfg.JWT, validate, logr)
	settingsSvc := service.NewSettingsService(settingsRepo, validate, logr)

	var sender notify.Sender
	if cfg.Notify.Simulate {
		sender = notify.NewSimulatedSender(logr)
	} else {
		sender = notify.NewWhatsAppSender(cfg.Notify.APIBaseURL, cfg.Notify.Timeout)
	}
	dispatcher := notify.NewDispatcher(settingsSvc, sender, logr, notify.DispatcherConfig{
		Workers:    cfg.Notify.WorkerConcurrency,
		MaxRetries: cfg.Notify.WorkerRetries,
	})

	identitySvc := service.NewIdentityService(identityRepo, engine, sampleStore, modelStore, cfg.Engine.SampleSize, validate, logr, metricsSvc)
	recognitionSvc := service.NewRecognitionService(identityRepo, engine, modelStore, cfg.Attendance.MatchThreshold, logr, metricsSvc)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, recognitionSvc, dispatcher, rdb, service.AttendanceOptions{
		DebounceWindow:   cfg.Attendance.DebounceWindow,
		NotifyOnCheckout: cfg.Attendance.NotifyOnCheckout,
	}, logr, metricsSvc)
	reportArchive, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Warnw("report archive unavailable", "error", err)
		reportArchive = nil
	}
	reportSvc := service.NewReportService(attendanceRepo, identityRepo, reportArchive, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	identityHandler := handler.NewIdentityHandler(identitySvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/attendance/recognize", attendanceHandler.Recognize)

	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc))
	admin.POST("/identities", identityHandler.Enroll)
	admin.GET("/identities", identityHandler.List)
	admin.GET("/identities/:id", identityHandler.Get)
	admin.GET("/attendance", attendanceHandler.List)
	admin.GET("/reports", reportHandler.List)
	admin.GET("/reports/:id/records", reportHandler.Records)
	admin.GET("/reports/:id/export", reportHandler.Export)
	admin.GET("/settings/notifications", settingsHandler.Get)
	admin.PUT("/settings/notifications", settingsHandler.Update)

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

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
