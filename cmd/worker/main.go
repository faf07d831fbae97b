// Package main runs the background job worker (post-session report generation).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pulse-classroom/backend/config"
	"github.com/pulse-classroom/backend/internal/events"
	"github.com/pulse-classroom/backend/internal/reports"
	"github.com/pulse-classroom/backend/internal/sessions"
	"github.com/pulse-classroom/backend/internal/worker"
	"github.com/pulse-classroom/backend/pkg/database"
	"github.com/pulse-classroom/backend/pkg/queue"
	"github.com/pulse-classroom/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	sessionRepo := sessions.NewRepository(pool)
	sessionSvc := sessions.NewService(sessionRepo, cfg.Engine, nil, logger)
	eventRepo := events.NewRepository(pool)

	// no live cache in the worker; reports are computed once and stored
	reportSvc := reports.NewService(sessionSvc, eventRepo, nil, cfg.Engine, nil, logger)
	reportRepo := reports.NewRepository(pool)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewReportProcessor(reportSvc, reportRepo, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
