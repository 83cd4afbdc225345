package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"

	"github.com/weiawesome/wes-io-live/dm-service/internal/cache"
	"github.com/weiawesome/wes-io-live/dm-service/internal/config"
	"github.com/weiawesome/wes-io-live/dm-service/internal/events"
	dmgrpc "github.com/weiawesome/wes-io-live/dm-service/internal/grpc"
	"github.com/weiawesome/wes-io-live/dm-service/internal/handler"
	"github.com/weiawesome/wes-io-live/dm-service/internal/hub"
	"github.com/weiawesome/wes-io-live/dm-service/internal/presence"
	"github.com/weiawesome/wes-io-live/dm-service/internal/repository"
	"github.com/weiawesome/wes-io-live/dm-service/internal/service"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/database"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/jwt"
	pkglog "github.com/weiawesome/wes-io-live/dm-service/pkg/log"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize structured logger
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("starting dm-service")

	// Connect to database using GORM
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, repository.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	store := repository.NewGormStore(db)

	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Duration, cfg.JWT.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token manager")
	}
	if cfg.JWT.Secret == "" {
		logger.Warn().Msg("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	// Optional history cache
	var historyCache cache.HistoryCache
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisHistoryCache(cache.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.CachePrefix)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to connect to redis, history cache disabled")
		} else {
			historyCache = rc
			defer rc.Close()
		}
	}

	// Create hub
	h := hub.NewHub(hub.Config{
		PingInterval:   cfg.WebSocket.PingInterval,
		PongWait:       cfg.WebSocket.PongWait,
		WriteWait:      cfg.WebSocket.WriteWait,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBufferSize: cfg.WebSocket.SendBufferSize,
	})
	go h.Run()

	// Create services
	registry := presence.NewRegistry(logger)
	lifecycle := service.NewLifecycle(registry, store, h, logger)
	history := service.NewHistoryService(store, historyCache, cfg.Redis.CacheTTL, logger)
	router := service.NewRouter(registry, store, logger, history)

	// Optional message events
	var publisher *events.KafkaPublisher
	if cfg.Kafka.Enabled {
		if kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions, logger); err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka publisher, message events disabled")
		} else {
			publisher = kp
			router.AddSink(events.NewSink(kp, logger))
			logger.Info().Str("topic", cfg.Kafka.Topic).Msg("kafka publisher started")
		}
	}

	// Optional ops gRPC server
	var grpcServer *grpc.Server
	if cfg.GRPC.Enabled {
		grpcAddr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
		gs, _, err := dmgrpc.StartGRPCServer(grpcAddr, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start grpc server")
		}
		grpcServer = gs
	}

	// Create handlers
	gin.SetMode(gin.ReleaseMode)
	engine := handler.NewEngine(logger,
		handler.NewHandler(store, history, lifecycle, h, tokens, authMiddleware, cfg.Server.CookieSecure),
		handler.NewWSHandler(h, lifecycle, router, authMiddleware, logger),
	)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", addr).Msg("dm-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down dm-service")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil { // 1. stop accepting connections
			logger.Error().Err(err).Msg("server shutdown error")
		}

		h.Stop() // 2. close all WS clients, stop Hub.Run()

		if grpcServer != nil {
			grpcServer.GracefulStop() // 3. stop ops endpoint
		}

		if publisher != nil {
			publisher.Close() // 4. flush pending message events
		}

		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("dm-service stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
