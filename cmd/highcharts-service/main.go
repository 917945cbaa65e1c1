package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pmcdi/jarvais-highcharts-service/internal/application/session"
	"github.com/pmcdi/jarvais-highcharts-service/internal/application/store"
	"github.com/pmcdi/jarvais-highcharts-service/internal/config"
	"github.com/pmcdi/jarvais-highcharts-service/pkg/adapters/metrics/prometheus"
	memorystorage "github.com/pmcdi/jarvais-highcharts-service/pkg/adapters/storage/memory"
	redisstorage "github.com/pmcdi/jarvais-highcharts-service/pkg/adapters/storage/redis"
	"github.com/pmcdi/jarvais-highcharts-service/pkg/api/http"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting jarvais highcharts service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Initialize Redis client. Connectivity is probed by the storage
	// manager; an unreachable Redis is not fatal, the service degrades to
	// in-memory storage.
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   -1, // retry policy belongs to the storage manager
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	// Initialize storage backends
	remoteBackend := redisstorage.NewBackend(redisClient, logger)
	memoryBackend := memorystorage.NewBackend(logger)
	memoryBackend.StartSweep(cfg.Storage.SweepInterval)

	metricsCollector := prometheus.NewCollector()

	storeManager := store.NewManager(
		remoteBackend,
		memoryBackend,
		metricsCollector,
		logger,
		cfg.Storage.ProbeInterval,
		cfg.Storage.OpTimeout,
	)

	ctx := context.Background()
	if err := storeManager.Init(ctx); err != nil {
		logger.Fatal("failed to initialize storage manager", zap.Error(err))
	}

	sessionService := session.NewService(storeManager, cfg.Storage.SessionTTL, logger)

	// Initialize API server
	httpServer := http.NewServer(&http.Config{
		Port:             cfg.HTTPPort,
		Sessions:         sessionService,
		Health:           storeManager,
		Logger:           logger,
		Version:          Version,
		Mode:             cfg.Mode(),
		CreatePerMinute:  cfg.Limits.CreatePerMinute,
		GeneralPerMinute: cfg.Limits.GeneralPerMinute,
		MaxBodyBytes:     cfg.Limits.MaxBodyBytes,
	})

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("jarvais highcharts service started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("storage", storeManager.Health().ActiveBackend),
		zap.String("mode", cfg.Mode()))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := storeManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("storage manager shutdown error", zap.Error(err))
	}

	memoryBackend.Close()

	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}

	logger.Info("jarvais highcharts service shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
