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

	_ "github.com/noah-isme/studyhub-api/api/swagger"
	"github.com/noah-isme/studyhub-api/internal/handler"
	"github.com/noah-isme/studyhub-api/internal/middleware"
	"github.com/noah-isme/studyhub-api/internal/repository"
	"github.com/noah-isme/studyhub-api/internal/service"
	"github.com/noah-isme/studyhub-api/pkg/cache"
	"github.com/noah-isme/studyhub-api/pkg/config"
	"github.com/noah-isme/studyhub-api/pkg/database"
	"github.com/noah-isme/studyhub-api/pkg/jobs"
	"github.com/noah-isme/studyhub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/studyhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/studyhub-api/pkg/middleware/requestid"
	"github.com/noah-isme/studyhub-api/pkg/pomodoro"
	"github.com/noah-isme/studyhub-api/pkg/quizapi"
	"github.com/noah-isme/studyhub-api/pkg/storage"
)

// @title StudyHub API
// @version 1.0.0
// @description Student portal: question papers, notices, notes, colleges, quizzes and a focus timer.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck
	if err := database.Migrate(ctx, db); err != nil {
		logr.Sugar().Fatalw("failed to migrate database", "error", err)
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	bucket, err := storage.NewBucket(cfg.Storage.Dir, cfg.Storage.PublicURL+cfg.Storage.PublicPath)
	if err != nil {
		logr.Sugar().Fatalw("failed to init storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.DefaultTTL, logr, cfg.Cache.Enabled)
	exportSvc := service.NewExportService(service.ExportConfig{Enabled: cfg.Exports.Enabled}, logr, nil, nil)

	cleanup := service.NewStorageCleanupService(bucket, metricsSvc, logr, jobs.QueueConfig{
		Workers:    cfg.Cleanup.Workers,
		MaxRetries: cfg.Cleanup.MaxRetries,
		RetryDelay: cfg.Cleanup.RetryDelay,
	})
	cleanup.Start(ctx)
	defer cleanup.Stop()

	userRepo := repository.NewUserRepository(db)
	paperRepo := repository.NewPaperRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	collegeRepo := repository.NewCollegeRepository(db)
	quizSessions := repository.NewQuizSessionRepository(redisClient)
	pomodoroRepo := repository.NewPomodoroRepository(redisClient)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "studyhub-api",
		Audience:           []string{"studyhub"},
	})
	userSvc := service.NewUserService(userRepo, bucket, cleanup, validate, logr, service.UserServiceConfig{
		MaxAvatarSize: cfg.Avatars.MaxFileSizeBytes,
	})
	paperSvc := service.NewPaperService(paperRepo, bucket, signer, cleanup, cacheSvc, exportSvc, metricsSvc, userRepo, validate, logr, service.PaperServiceConfig{
		MaxFileSize: cfg.Papers.MaxFileSizeBytes,
		PageSize:    cfg.Papers.PageSize,
		FetchLimit:  cfg.Papers.FetchLimit,
		CacheTTL:    cfg.Papers.CacheTTL,
		APIPrefix:   cfg.APIPrefix,
	})
	noticeSvc := service.NewNoticeService(noticeRepo, bucket, signer, cleanup, cacheSvc, metricsSvc, userRepo, validate, logr, service.NoticeServiceConfig{
		MaxFileSize: cfg.Notices.MaxFileSizeBytes,
		CacheTTL:    cfg.Papers.CacheTTL,
		APIPrefix:   cfg.APIPrefix,
	})
	noteSvc := service.NewNoteService(cacheSvc, logr, service.NoteServiceConfig{
		Dir:       cfg.Notes.Dir,
		URLPrefix: cfg.Notes.URLPrefix,
		CacheTTL:  cfg.Notes.CacheTTL,
	})
	collegeSvc := service.NewCollegeService(collegeRepo, userRepo, validate, logr)
	quizSvc := service.NewQuizService(
		quizapi.NewClient(cfg.Quiz.APIURL, cfg.Quiz.APIKey, cfg.Quiz.Timeout, nil),
		quizSessions, metricsSvc, validate, logr,
		service.QuizServiceConfig{SessionTTL: cfg.Quiz.SessionTTL, SecondsPerQuestion: cfg.Quiz.SecondsPerQuestion},
	)
	pomodoroSvc := service.NewPomodoroService(pomodoroRepo, exportSvc, metricsSvc, validate, logr, service.PomodoroServiceConfig{
		Defaults: pomodoro.Settings{
			Work:           cfg.Pomodoro.Work,
			ShortBreak:     cfg.Pomodoro.ShortBreak,
			LongBreak:      cfg.Pomodoro.LongBreak,
			LongBreakEvery: cfg.Pomodoro.LongBreakEvery,
		},
		HistoryLimit: cfg.Pomodoro.HistoryLimit,
	})
	fileSvc := service.NewFileService(bucket, signer, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/health", "/ready", "/metrics"))
	mountPublicFiles(r, cfg.Storage, cfg.Notes)

	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
		"postgres": db,
		"redis":    handler.PingerFunc(cacheRepo.Ping),
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		auth:     authSvc,
		users:    userRepo,
		metrics:  metricsHandler,
		authH:    handler.NewAuthHandler(authSvc),
		userH:    handler.NewUserHandler(userSvc),
		paperH:   handler.NewPaperHandler(paperSvc),
		noticeH:  handler.NewNoticeHandler(noticeSvc),
		noteH:    handler.NewNoteHandler(noteSvc),
		collegeH: handler.NewCollegeHandler(collegeSvc),
		quizH:    handler.NewQuizHandler(quizSvc),
		timerH:   handler.NewPomodoroHandler(pomodoroSvc),
		fileH:    handler.NewFileHandler(fileSvc),
	})

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

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
