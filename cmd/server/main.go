// Package main runs the lesson authoring HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/techmigo/backend/config"
	"github.com/techmigo/backend/internal/auth"
	"github.com/techmigo/backend/internal/courses"
	"github.com/techmigo/backend/internal/events"
	"github.com/techmigo/backend/internal/lessons"
	"github.com/techmigo/backend/internal/middleware"
	"github.com/techmigo/backend/internal/models"
	"github.com/techmigo/backend/internal/realtime"
	"github.com/techmigo/backend/internal/worker"
	"github.com/techmigo/backend/pkg/database"
	"github.com/techmigo/backend/pkg/queue"
	"github.com/techmigo/backend/pkg/redis"
	"github.com/techmigo/backend/pkg/response"
	"github.com/techmigo/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, database.PoolOptions{
		DSN:      cfg.Database.DSN(),
		MaxConns: int32(cfg.Database.MaxConns),
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			LessonAssetsBucket:   cfg.AWS.LessonAssetsBucket,
			QuizImportsBucket:    cfg.AWS.QuizImportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	publisher := events.NewPublisher(rdb.Client, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Courses
	courseRepo := courses.NewRepository(pool)
	courseHandler := courses.NewHandler(courseRepo, logger)

	// Lessons and quiz import
	lessonRepo := lessons.NewRepository(pool)
	lessonHandler := lessons.NewHandler(lessonRepo, courseRepo, publisher, cfg.Quiz.MaxTextBytes, logger)
	if s3Client != nil {
		lessonHandler.SetStorage(s3Client, jobQueue)
	}

	// Live authoring feed
	hub := realtime.NewHub(realtime.NewRedisSubscriber(rdb.Client, logger), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	editors := middleware.RequireRole(models.RoleAdmin, models.RoleInstructor)

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", middleware.RequireRole(models.RoleAdmin), authHandler.List)

		// Courses
		api.GET("/courses", courseHandler.List)
		api.POST("/courses", editors, courseHandler.Create)
		api.GET("/courses/:id", courseHandler.GetByID)
		api.PATCH("/courses/:id", editors, courseHandler.Update)
		api.DELETE("/courses/:id", editors, courseHandler.Delete)
		api.POST("/courses/:id/instructors", editors, courseHandler.AddInstructor)

		// Lessons
		api.GET("/courses/:id/lessons", lessonHandler.ListByCourse)
		api.POST("/courses/:id/lessons", editors, lessonHandler.Create)
		api.GET("/lessons/:id", lessonHandler.GetByID)
		api.PUT("/lessons/:id", editors, lessonHandler.Update)
		api.DELETE("/lessons/:id", editors, lessonHandler.Delete)
		api.POST("/lessons/:id/attachments/upload-url", editors, lessonHandler.AttachmentUploadURL)

		// Quiz
		api.POST("/quiz/parse", editors, lessonHandler.ParseQuiz)
		api.POST("/lessons/:id/quiz/import", editors, lessonHandler.ImportQuiz)
		api.POST("/lessons/:id/quiz/import-file", editors, lessonHandler.ImportQuizFile)
		api.GET("/lessons/:id/quiz/export", editors, lessonHandler.ExportQuiz)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, jwtService, courseRepo, cfg.Server.CORSAllowedOrigins, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (quiz file imports)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil && cfg.Server.RunWorker {
		processor := worker.NewQuizImportProcessor(lessonRepo, s3Client, publisher, jobQueue, logger)
		go processor.Run(workerCtx)
		logger.Info("quiz import worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
