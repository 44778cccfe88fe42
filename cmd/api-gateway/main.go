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

	_ "github.com/JuanCruzRobledo/correccion-automatica-api/api/swagger"
	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/handler"
	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/middleware"
	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/repository"
	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/service"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/cache"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/config"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/database"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/jobs"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/logger"
	corsmiddleware "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/middleware/cors"
	reqidmiddleware "github.com/JuanCruzRobledo/correccion-automatica-api/pkg/middleware/requestid"
	"github.com/JuanCruzRobledo/correccion-automatica-api/pkg/storage"
)

// @title Correccion Automatica API
// @version 1.0.0
// @description Academic administration and automatic-correction backend
// @BasePath /api
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The API degrades to uncached option lists when Redis is down.
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}

	submissionStore, err := storage.NewLocalStorage(cfg.Submissions.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init submission storage", "error", err)
	}
	consolidatorStore, err := storage.NewLocalStorage(cfg.Consolidator.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init consolidator storage", "error", err)
	}
	submissionSigner := storage.NewSignedURLSigner(cfg.Submissions.SignedURLSecret, cfg.Submissions.SignedURLTTL)
	consolidatorSigner := storage.NewSignedURLSigner(cfg.Consolidator.SignedURLSecret, cfg.Consolidator.SignedURLTTL)

	validate := validator.New()

	universityRepo := repository.NewUniversityRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	careerRepo := repository.NewCareerRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	rubricRepo := repository.NewRubricRepository(db)
	userRepo := repository.NewUserRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	consolidationRepo := repository.NewConsolidationRepository(db)
	hierarchyRepo := repository.NewHierarchyRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "correccion-automatica-api",
	})
	hierarchySvc := service.NewHierarchyService(hierarchyRepo, cacheRepo, cfg.Hierarchy.CacheTTL, cfg.Hierarchy.CacheEnabled, logr)
	hierarchySvc.SetMetrics(metricsSvc)
	universitySvc := service.NewUniversityService(universityRepo, hierarchySvc, validate, logr)
	facultySvc := service.NewFacultyService(facultyRepo, universityRepo, hierarchySvc, validate, logr)
	careerSvc := service.NewCareerService(careerRepo, facultyRepo, hierarchySvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, universityRepo, hierarchySvc, validate, logr)
	commissionSvc := service.NewCommissionService(commissionRepo, courseRepo, careerRepo, hierarchySvc, validate, logr)
	rubricSvc := service.NewRubricService(rubricRepo, commissionRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, rubricRepo, submissionStore, submissionSigner,
		cfg.Submissions.MaxFileSizeBytes, cfg.Submissions.AllowedMIMEs, validate, logr)
	submissionSvc.SetMetrics(metricsSvc)

	consolidatorSvc := service.NewConsolidatorService(consolidationRepo, consolidatorStore, consolidatorSigner,
		cfg.Consolidator.MaxUploadBytes, cfg.Consolidator.MaxBatchBytes, 7*24*time.Hour, logr)
	consolidatorSvc.SetMetrics(metricsSvc)

	queue := jobs.NewQueue("consolidation", consolidatorSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Consolidator.WorkerConcurrency,
		MaxRetries: cfg.Consolidator.WorkerRetries,
		Logger:     logr,
	})
	consolidatorSvc.SetQueue(queue)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(rootCtx)
	defer queue.Stop()

	go func() {
		ticker := time.NewTicker(cfg.Consolidator.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				consolidatorSvc.CleanupExpired(rootCtx)
			}
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Universities: handler.NewUniversityHandler(universitySvc),
		Faculties:    handler.NewFacultyHandler(facultySvc),
		Careers:      handler.NewCareerHandler(careerSvc),
		Courses:      handler.NewCourseHandler(courseSvc),
		Commissions:  handler.NewCommissionHandler(commissionSvc),
		Rubrics:      handler.NewRubricHandler(rubricSvc),
		Users:        handler.NewUserHandler(userSvc),
		Hierarchy:    handler.NewHierarchyHandler(hierarchySvc),
		Submissions:  handler.NewSubmissionHandler(submissionSvc),
		Consolidator: handler.NewConsolidatorHandler(consolidatorSvc),
		Metrics:      metricsHandler,
		AuthService:  authSvc,
		UserRepo:     userRepo,
	}
	handlers.Register(r, cfg.APIPrefix)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
