package main

import (
	"context"   // Redis ping and shutdown deadline
	"errors"    // Server close detection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Graceful shutdown
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"vertex_games/internal/api"        // Router and handlers
	"vertex_games/internal/config"     // Configuration
	"vertex_games/internal/db"         // Database access
	"vertex_games/internal/middleware" // Metrics
	"vertex_games/internal/service"    // Services
	"vertex_games/internal/storage"    // Image uploads
	"vertex_games/internal/utils"      // Cache

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Connect to the database
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Read cache: Redis when configured, in-process otherwise
	var cache utils.Cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		cache = utils.NewRedisCache(redisClient)
	} else {
		cache = utils.NewMemoryCache(5 * time.Minute)
	}

	blobs, err := storage.NewLocalStore(cfg.UploadDir, "/uploads")
	if err != nil {
		logrus.Fatalf("failed to prepare upload dir: %v", err)
	}

	auth := service.NewAuthService(gdb, cfg.JWTSecret)
	if cfg.AdminUsername != "" {
		created, err := auth.ProvisionAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			logrus.Fatalf("failed to provision admin: %v", err)
		}
		if created {
			logrus.WithField("username", cfg.AdminUsername).Info("Admin account provisioned")
		}
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r, err := api.NewRouter(api.Server{
		Config:  cfg,
		DB:      gdb,
		Auth:    auth,
		Catalog: service.NewCatalogService(gdb, blobs, cache),
		Reviews: service.NewReviewService(gdb, cache),
		Metrics: middleware.NewMetrics(),
	})
	if err != nil {
		logrus.Fatalf("failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logrus.Infof("Server running on %s", cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
	}
}
