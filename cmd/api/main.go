// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/yourusername/blog-api/internal/auth"
	"github.com/yourusername/blog-api/internal/config"
	"github.com/yourusername/blog-api/internal/db"
	"github.com/yourusername/blog-api/internal/jobs"
	"github.com/yourusername/blog-api/internal/logging"
	"github.com/yourusername/blog-api/internal/posts"
	"github.com/yourusername/blog-api/internal/storage"
	"github.com/yourusername/blog-api/internal/users"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.GinMode)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// app は起動時に組み立てた依存関係をまとめたものです。
type app struct {
	users      *users.Service
	posts      *posts.Service
	middleware *auth.Middleware
	uploadDir  string
	cleanup    *jobs.Manager
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userStore, postStore, closeDB, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	local, err := storage.NewLocal(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		return err
	}

	a := &app{uploadDir: local.Dir()}

	// キュー未設定の場合はリクエスト内で削除する
	var scheduler storage.Scheduler
	if cfg.QueueRedisURL != "" {
		manager, err := setupJobs(cfg, local, logger)
		if err != nil {
			return fmt.Errorf("failed to setup cleanup jobs: %w", err)
		}
		manager.StartWorkers()
		defer func() {
			if err := manager.Shutdown(context.Background()); err != nil {
				logger.Warn("failed to shutdown cleanup jobs", "error", err)
			}
		}()
		scheduler = manager
		a.cleanup = manager
	}
	uploads := storage.NewUploads(local, scheduler, logger)

	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret))
	a.users = users.NewService(userStore, auth.NewHasher(cfg.BcryptCost), tokens, uploads, logger)
	a.posts = posts.NewService(postStore, uploads, a.users, logger)

	var checker auth.UserChecker
	if cfg.RevalidateAuthUser {
		checker = a.users
	}
	a.middleware = auth.NewMiddleware(auth.NewGate(tokens), checker, logger)

	gin.SetMode(cfg.GinMode)
	router := newRouter(cfg, a, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", "addr", srv.Addr, "mode", cfg.GinMode, "db", cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStores は DATABASE_DRIVER に応じたストアを返します。
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (users.Store, posts.Store, func(), error) {
	if cfg.DatabaseDriver == config.DriverMemory {
		logger.Warn("using in-memory stores; data is lost on restart")
		return users.NewMemoryStore(), posts.NewMemoryStore(), func() {}, nil
	}

	client, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() { disconnect(client, logger) }

	database := client.Database(cfg.DatabaseName)
	userStore := users.NewMongoStore(database)
	postStore := posts.NewMongoStore(database)
	if err := userStore.EnsureIndexes(ctx); err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	if err := postStore.EnsureIndexes(ctx); err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	return userStore, postStore, closeDB, nil
}

func disconnect(client *mongo.Client, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Warn("failed to disconnect mongodb", "error", err)
	}
}

func newRouter(cfg *config.Config, a *app, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(logger))
	router.MaxMultipartMemory = cfg.MaxUploadSize

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
	}
	router.Use(cors.New(corsConfig))

	setupRoutes(router, a, logger)
	return router
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "blog-api",
		"version": "0.1.0",
	})
}

// setupRoutes は API グループと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, a *app, logger *slog.Logger) {
	router.GET("/health", handleHealth)
	router.Static("/uploads", a.uploadDir)

	requireAuth := a.middleware.RequireAuth()

	api := router.Group("/api")
	{
		users.RegisterRoutes(api.Group("/users"), a.users, requireAuth, logger)
		posts.RegisterRoutes(api.Group("/posts"), a.posts, requireAuth, logger)

		if a.cleanup != nil {
			api.GET("/uploads/cleanup/:name", requireAuth, cleanupStatusHandler(a.cleanup))
		}
	}
}
