// Package main runs the classroom confusion pulse HTTP server with graceful shutdown.
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

	"github.com/pulse-classroom/backend/config"
	"github.com/pulse-classroom/backend/internal/attendees"
	"github.com/pulse-classroom/backend/internal/events"
	"github.com/pulse-classroom/backend/internal/middleware"
	"github.com/pulse-classroom/backend/internal/reports"
	"github.com/pulse-classroom/backend/internal/sessions"
	"github.com/pulse-classroom/backend/pkg/database"
	"github.com/pulse-classroom/backend/pkg/queue"
	"github.com/pulse-classroom/backend/pkg/redis"
	"github.com/pulse-classroom/backend/pkg/response"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Sessions (registry + lifecycle)
	sessionRepo := sessions.NewRepository(pool)
	sessionSvc := sessions.NewService(sessionRepo, cfg.Engine, nil, logger)
	sessionHandler := sessions.NewHandler(sessionSvc, jobQueue, cfg.Engine.PollIntervalSeconds, logger)

	// Attendees (identity issuer)
	attendeeRepo := attendees.NewRepository(pool)
	attendeeSvc := attendees.NewService(sessionSvc, attendeeRepo, logger)
	attendeeHandler := attendees.NewHandler(attendeeSvc, logger)

	// Events (ledger)
	eventRepo := events.NewRepository(pool)
	eventSvc := events.NewService(eventRepo, logger)
	eventHandler := events.NewHandler(eventSvc, logger)

	// Reports (live view + summary + stored reports)
	liveCache := reports.NewLiveCache(rdb.Client, time.Duration(cfg.Engine.LiveCacheTTLSeconds)*time.Second, logger)
	reportRepo := reports.NewRepository(pool)
	reportSvc := reports.NewService(sessionSvc, eventRepo, liveCache, cfg.Engine, nil, logger)
	reportHandler := reports.NewHandler(reportSvc, reportRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Attendee side: join by code, then click/note while the session is active
	router.POST("/join", attendeeHandler.Join)
	router.POST("/sessions/:id/clicks", eventHandler.RecordClick)
	router.POST("/sessions/:id/notes", eventHandler.RecordNote)
	router.GET("/sessions/:id/active", sessionHandler.Active)

	// Instructor side: lifecycle and reporting
	router.POST("/sessions", sessionHandler.Create)
	router.GET("/sessions", sessionHandler.List)
	router.GET("/sessions/:id", sessionHandler.GetByID)
	router.POST("/sessions/:id/activate", sessionHandler.Activate)
	router.POST("/sessions/:id/end", sessionHandler.End)
	router.GET("/sessions/:id/live", reportHandler.Live)
	router.GET("/sessions/:id/summary", reportHandler.Summary)
	router.GET("/sessions/:id/report", reportHandler.Report)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
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
