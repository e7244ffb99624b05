package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/winisorts/classifier-api/internal/adapter/http/router"
	classcache "github.com/winisorts/classifier-api/internal/adapter/repository/cache"
	"github.com/winisorts/classifier-api/internal/infrastructure/cache"
	"github.com/winisorts/classifier-api/internal/infrastructure/config"
	"github.com/winisorts/classifier-api/internal/infrastructure/database"
	"github.com/winisorts/classifier-api/internal/infrastructure/inference"
	"github.com/winisorts/classifier-api/internal/infrastructure/logger"
)

const warmupText = "We study the effect of model warm-up on inference latency."

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if _, err := maxprocs.Set(maxprocs.Logger(log.Sugar().Infof)); err != nil {
		log.Warn("Failed to set GOMAXPROCS", zap.Error(err))
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Load models, fail fast on any inconsistency
	if err := inference.InitRuntime(cfg.Model.OnnxLibrary); err != nil {
		return err
	}
	defer func() {
		if err := inference.DestroyRuntime(); err != nil {
			log.Warn("Failed to destroy onnxruntime environment", zap.Error(err))
		}
	}()

	bundle, err := inference.NewONNXLoader(&cfg.Model, log).Load(cfg.Model.ExportDir)
	if err != nil {
		log.Error("Failed to load model bundle", zap.String("export_dir", cfg.Model.ExportDir), zap.Error(err))
		return fmt.Errorf("failed to load model bundle: %w", err)
	}
	defer func() {
		if err := inference.CloseBundle(bundle); err != nil {
			log.Warn("Failed to release model bundle", zap.Error(err))
		}
	}()
	log.Info("Model bundle loaded",
		zap.String("export_dir", cfg.Model.ExportDir),
		zap.String("fingerprint", bundle.Fingerprint),
		zap.Int("max_length", bundle.Config.MaxLength),
		zap.Float64("multilabel_threshold", bundle.Config.MultilabelThreshold),
	)

	if cfg.Model.Warmup {
		elapsed, err := inference.Warmup(context.Background(), bundle, warmupText)
		if err != nil {
			return fmt.Errorf("model warmup failed: %w", err)
		}
		log.Info("Model warmup completed", zap.Duration("elapsed", elapsed))
	}

	// Initialize database (optional, enables the paper library)
	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = database.NewPostgresDB(&cfg.Database, cfg.Log.Level == "debug")
		if err != nil {
			log.Error("Failed to connect to database", zap.Error(err))
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("Connected to database")

		// Run migrations
		if err := database.AutoMigrate(db); err != nil {
			log.Error("Failed to run migrations", zap.Error(err))
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("Database migrations completed")
	}

	// Initialize Redis (optional, continue without it)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(context.Background(), &cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, continuing without shared cache", zap.Error(err))
			redisClient = nil
		} else {
			log.Info("Connected to Redis")
		}
	}

	// Result cache tiers
	tiers := []classcache.Tier{}
	if cfg.Cache.LocalEnabled {
		local, err := classcache.NewMemoryCache(cfg.Cache.LocalMaxEntries, cfg.Cache.TTL)
		if err != nil {
			return err
		}
		defer local.Close()
		tiers = append(tiers, classcache.Tier{Name: "local", Cache: local})
	}
	if redisClient != nil {
		tiers = append(tiers, classcache.Tier{Name: "redis", Cache: classcache.NewRedisCache(redisClient, cfg.Cache.TTL)})
	}
	resultCache := classcache.NewTieredCache(tiers...)

	// Setup router
	deps := router.Deps{
		Config: cfg,
		Bundle: bundle,
		DB:     db,
		Redis:  redisClient,
		Logger: log,
	}
	if resultCache.Len() > 0 {
		deps.Cache = resultCache
	}
	r := router.Setup(deps)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close database connection
	if db != nil {
		if sqlDB, err := db.DB(); err == nil && sqlDB != nil {
			_ = sqlDB.Close()
		}
	}

	// Close Redis connection
	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Info("Server exited")
	return nil
}
