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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/vidtube-api/api/swagger"
	"github.com/noah-isme/vidtube-api/internal/handler"
	"github.com/noah-isme/vidtube-api/internal/repository"
	"github.com/noah-isme/vidtube-api/internal/service"
	"github.com/noah-isme/vidtube-api/pkg/assets"
	"github.com/noah-isme/vidtube-api/pkg/cache"
	"github.com/noah-isme/vidtube-api/pkg/config"
	"github.com/noah-isme/vidtube-api/pkg/database"
	"github.com/noah-isme/vidtube-api/pkg/jobs"
	"github.com/noah-isme/vidtube-api/pkg/logger"
	"github.com/noah-isme/vidtube-api/pkg/storage"
)

// @title VidTube API
// @version 1.0.0
// @description Accounts, sessions and playlists for the VidTube video platform
// @BasePath /api/v1
// @schemes http https
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
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.DSN(), logr); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	cacheEnabled := cfg.Cache.Enabled
	if cacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, playlist cache disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	playlists := repository.NewPlaylistRepository(db)
	videos := repository.NewVideoRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cacheEnabled)
	tokens := service.NewTokenService(service.TokenConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		AccessExpiry:  cfg.JWT.AccessExpiration,
		RefreshSecret: cfg.JWT.RefreshSecret,
		RefreshExpiry: cfg.JWT.RefreshExpiration,
		Issuer:        cfg.JWT.Issuer,
	})
	sessionSvc := service.NewSessionService(sessions, users, tokens, logr)

	var uploader service.AssetUploader
	if cloud, err := assets.NewCloudinaryUploader(cfg.Cloudinary, logr); err != nil {
		if cfg.Env == config.EnvProduction {
			logr.Fatal("failed to configure asset host", zap.Error(err))
		}
		logr.Warn("asset host not configured, registration will reject uploads", zap.Error(err))
	} else {
		destroyQueue := jobs.NewQueue("asset-destroy", cloud.Destroy, jobs.Config{
			Workers:    2,
			MaxRetries: 5,
			RetryDelay: 2 * time.Second,
			Logger:     logr,
		})
		destroyQueue.Start(ctx)
		defer destroyQueue.Stop()
		uploader = assets.WithDeferredDestroy(cloud, destroyQueue, logr)
	}

	authSvc := service.NewAuthService(users, sessionSvc, tokens, uploader, service.NewPasswordHasher(cfg.BcryptCost), validate, metrics, logr)
	playlistSvc := service.NewPlaylistService(playlists, videos, users, cacheSvc, validate, logr,
		service.WithReinvalidateAfter(cfg.Cache.ReinvalidateAfter))

	staging, err := storage.NewTempStorage(cfg.Uploads.TempDir, cfg.Uploads.MaxFileSize)
	if err != nil {
		logr.Fatal("failed to prepare upload staging", zap.Error(err))
	}
	go sweepStaging(ctx, staging, cfg.Uploads, logr)

	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if cacheEnabled {
		checks["cache"] = cacheRepo.Ping
	}

	router := handler.NewRouter(handler.RouterDeps{
		Config:    cfg,
		Logger:    logr,
		Metrics:   metrics,
		Tokens:    authSvc,
		Auth:      handler.NewAuthHandler(authSvc, staging, cfg.Cookie, logr),
		Playlists: handler.NewPlaylistHandler(playlistSvc),
		Ops:       handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// sweepStaging removes staged uploads abandoned by interrupted requests.
func sweepStaging(ctx context.Context, staging *storage.TempStorage, cfg config.UploadsConfig, logr *zap.Logger) {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := staging.CleanupOlderThan(cfg.MaxAge)
			if err != nil {
				logr.Warn("upload sweep failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("removed stale uploads", zap.Int("count", len(removed)))
			}
		}
	}
}
