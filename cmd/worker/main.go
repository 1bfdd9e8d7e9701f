// Package main runs the background job worker (provider asset cleanup, email) and the abandoned-upload sweeper.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coachhub/backend/config"
	"github.com/coachhub/backend/internal/emaillogs"
	"github.com/coachhub/backend/internal/videos"
	"github.com/coachhub/backend/internal/worker"
	"github.com/coachhub/backend/pkg/database"
	"github.com/coachhub/backend/pkg/mailer"
	"github.com/coachhub/backend/pkg/mux"
	"github.com/coachhub/backend/pkg/queue"
	"github.com/coachhub/backend/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	muxClient := mux.NewClient(mux.Config{
		TokenID:     cfg.Mux.TokenID,
		TokenSecret: cfg.Mux.TokenSecret,
		BaseURL:     cfg.Mux.BaseURL,
	}, logger)
	mail := mailer.New(mailer.Config{
		Host:        cfg.Email.SMTPHost,
		Port:        cfg.Email.SMTPPort,
		Username:    cfg.Email.SMTPUser,
		Password:    cfg.Email.SMTPPass,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
	}, logger)
	if cfg.Email.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set; email jobs will be logged as failed")
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewProcessor(jobQueue, muxClient, mail, emaillogs.NewRepository(pool), logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New(cron.WithLocation(time.UTC))
	sweeper := videos.NewSweeper(videos.NewRepository(pool), logger)
	if _, err := videos.ScheduleSweeper(workerCtx, scheduler, cfg.Sweeper.Schedule, sweeper); err != nil {
		logger.Fatal("sweeper", zap.Error(err))
	}
	scheduler.Start()
	logger.Info("sweeper scheduled", zap.String("schedule", cfg.Sweeper.Schedule))

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	<-scheduler.Stop().Done()
	select {
	case <-done:
	case <-time.After(queue.PollTimeout + 2*time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
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
