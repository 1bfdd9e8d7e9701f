// Package main runs the marketplace HTTP API with WebSocket push and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coachhub/backend/config"
	"github.com/coachhub/backend/internal/analytics"
	"github.com/coachhub/backend/internal/auth"
	"github.com/coachhub/backend/internal/emaillogs"
	"github.com/coachhub/backend/internal/middleware"
	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/internal/profiles"
	"github.com/coachhub/backend/internal/realtime"
	"github.com/coachhub/backend/internal/videos"
	"github.com/coachhub/backend/pkg/database"
	"github.com/coachhub/backend/pkg/mux"
	"github.com/coachhub/backend/pkg/queue"
	"github.com/coachhub/backend/pkg/redis"
	"github.com/coachhub/backend/pkg/response"
	"github.com/coachhub/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: int32(cfg.Database.MaxConns)}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var avatars profiles.Avatars
	if cfg.AWS.AvatarsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AvatarsBucket:        cfg.AWS.AvatarsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			avatars = s3Client
		}
	}

	muxClient := mux.NewClient(mux.Config{
		TokenID:      cfg.Mux.TokenID,
		TokenSecret:  cfg.Mux.TokenSecret,
		BaseURL:      cfg.Mux.BaseURL,
		CORSOrigin:   cfg.Mux.CORSOrigin,
		VideoQuality: cfg.Mux.VideoQuality,
	}, logger)
	if !muxClient.Configured() {
		logger.Warn("mux credentials missing; upload creation will fail")
	}
	if cfg.Mux.WebhookSecret == "" {
		logger.Warn("MUX_WEBHOOK_SECRET not set; webhooks will be rejected")
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, pubsub, pubsub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, jobQueue, cfg.App.PublicURL, logger)

	// Profiles
	profileRepo := profiles.NewRepository(pool)
	profileHandler := profiles.NewHandler(profileRepo, avatars, logger)

	// Videos
	videoRepo := videos.NewRepository(pool)
	videoService := videos.NewService(videoRepo, profileRepo, muxClient, jobQueue, logger)
	videoService.SetNotifier(hub)
	videoHandler := videos.NewHandler(videoService, logger)
	webhookHandler := videos.NewWebhookHandler(videoService, cfg.Mux.WebhookSecret, logger)

	emailLogsHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool), logger)
	statsHandler := analytics.NewHandler(analytics.NewRepository(pool), logger)

	validateToken := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/verify-email", authHandler.VerifyEmail)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	// Provider webhooks (signature-verified, no JWT)
	router.POST("/mux/webhook", webhookHandler.Receive)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)

		// Profiles
		api.GET("/profile", profileHandler.Me)
		api.PUT("/profile", profileHandler.Upsert)
		api.POST("/profile/avatar-upload-url", profileHandler.AvatarUploadURL)
		api.GET("/profiles/:id", profileHandler.Get)
		api.GET("/coaches", profileHandler.ListCoaches)

		// Videos
		api.POST("/videos/uploads", videoHandler.CreateUpload)
		api.GET("/videos", videoHandler.List)
		api.GET("/videos/:id", videoHandler.Get)
		api.PATCH("/videos/:id", videoHandler.Update)
		api.POST("/videos/:id/uploading", videoHandler.MarkUploading)
		api.DELETE("/videos/:id", videoHandler.Delete)

		// Admin moderation
		admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
		admin.GET("/videos", videoHandler.AdminList)
		admin.DELETE("/videos/:id", videoHandler.AdminDelete)
		admin.GET("/emails", emailLogsHandler.List)
		admin.GET("/stats", statsHandler.Get)
	}

	// WebSocket (token in query; browsers cannot set Authorization on upgrade)
	router.GET("/ws", realtime.ServeWs(hub, realtime.NewUpgrader(cfg.Server.CORSAllowedOrigins), validateToken, profileRepo, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Optional in-process sweeper for single-instance deployments
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	var scheduler *cron.Cron
	if cfg.Server.RunSweeper {
		scheduler = cron.New(cron.WithLocation(time.UTC))
		if _, err := videos.ScheduleSweeper(bgCtx, scheduler, cfg.Sweeper.Schedule, videos.NewSweeper(videoRepo, logger)); err != nil {
			logger.Fatal("sweeper", zap.Error(err))
		}
		scheduler.Start()
		logger.Info("sweeper scheduled", zap.String("schedule", cfg.Sweeper.Schedule))
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

	bgCancel()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
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
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
