// Package main runs the rewards platform HTTP server with graceful shutdown.
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

	"github.com/bizquest/backend/config"
	"github.com/bizquest/backend/internal/accesscodes"
	"github.com/bizquest/backend/internal/achievements"
	"github.com/bizquest/backend/internal/assets"
	"github.com/bizquest/backend/internal/auth"
	"github.com/bizquest/backend/internal/badges"
	"github.com/bizquest/backend/internal/gems"
	"github.com/bizquest/backend/internal/middleware"
	"github.com/bizquest/backend/internal/organizations"
	"github.com/bizquest/backend/internal/rewards"
	"github.com/bizquest/backend/internal/tasks"
	"github.com/bizquest/backend/internal/worker"
	"github.com/bizquest/backend/pkg/database"
	"github.com/bizquest/backend/pkg/queue"
	"github.com/bizquest/backend/pkg/redis"
	"github.com/bizquest/backend/pkg/response"
	"github.com/bizquest/backend/pkg/storage"
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

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AssetsBucket:         cfg.AWS.AssetsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth and access gate
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)
	codeStore := accesscodes.NewRepository(pool)
	codeGenerator := accesscodes.NewGenerator(codeStore)
	codeHandler := accesscodes.NewHandler(codeStore, codeGenerator, cfg.AccessCodes.AdminPassword, logger)

	// Organizations
	orgRepo := organizations.NewRepository(pool)
	orgHandler := organizations.NewHandler(orgRepo)

	// Catalogs and ledgers
	achievementStore := achievements.NewRepository(pool)
	achievementHandler := achievements.NewHandler(achievementStore, logger)
	badgeStore := badges.NewRepository(pool)
	badgeHandler := badges.NewHandler(badgeStore, logger)
	rewardStore := rewards.NewRepository(pool)
	rewardHandler := rewards.NewHandler(rewardStore, jobQueue, logger)
	gemStore := gems.NewRepository(pool)
	gemHandler := gems.NewHandler(gemStore, logger)
	taskStore := tasks.NewRepository(pool)
	taskHandler := tasks.NewHandler(taskStore, achievementStore, logger)
	assetHandler := assets.NewHandler(s3Client, logger)

	fulfillmentProcessor := worker.NewFulfillmentProcessor(rewardStore, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public; registration consumes an access code)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Access codes (public; generate and history are password-gated)
	codeGroup := router.Group("/access-codes")
	{
		codeGroup.POST("/generate", codeHandler.Generate)
		codeGroup.POST("/validate", codeHandler.Validate)
		codeGroup.POST("/history", codeHandler.History)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)

		// Users (platform admin)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Organizations
		api.GET("/organizations", orgHandler.ListMyOrganizations)
		api.POST("/organizations", orgHandler.CreateOrganization)
		api.POST("/organizations/join", orgHandler.JoinOrganization)
		api.GET("/organizations/:id/members", orgHandler.ListMembers)

		// Organization-scoped surface
		org := api.Group("")
		org.Use(middleware.ResolveOrganization(orgRepo))
		{
			org.GET("/badges", badgeHandler.ListForUser)
			org.POST("/badges/claim", badgeHandler.Claim)

			org.POST("/achievements/claim", achievementHandler.Claim)

			org.GET("/rewards", rewardHandler.List)
			org.POST("/rewards/redeem", rewardHandler.Redeem)

			org.GET("/gems/balance", gemHandler.Balance)
			org.GET("/gems/transactions", gemHandler.Transactions)

			org.GET("/tasks", taskHandler.List)
			org.POST("/tasks/:id/complete", taskHandler.Complete)

			// Admin surface (org owner or admin)
			admin := org.Group("/admin")
			admin.Use(middleware.RequireOrgAdmin())
			{
				admin.GET("/achievements", achievementHandler.List)
				admin.POST("/achievements", achievementHandler.Create)
				admin.PUT("/achievements/:id", achievementHandler.Update)
				admin.DELETE("/achievements/:id", achievementHandler.Delete)
				admin.GET("/achievements-history", achievementHandler.History)

				admin.GET("/badges", badgeHandler.ListAdmin)
				admin.POST("/badges", badgeHandler.Create)
				admin.PUT("/badges/:id", badgeHandler.Update)
				admin.DELETE("/badges/:id", badgeHandler.Delete)
				admin.GET("/badges-history", badgeHandler.History)

				admin.GET("/rewards", rewardHandler.ListAdmin)
				admin.POST("/rewards", rewardHandler.Create)
				admin.PUT("/rewards/:id", rewardHandler.Update)
				admin.DELETE("/rewards/:id", rewardHandler.Delete)
				admin.PATCH("/rewards/redemptions/:id/status", rewardHandler.UpdateStatus)
				admin.GET("/rewards-history", rewardHandler.History)

				admin.POST("/tasks", taskHandler.Create)
				admin.PUT("/tasks/:id", taskHandler.Update)
				admin.DELETE("/tasks/:id", taskHandler.Delete)

				admin.POST("/assets/icon", assetHandler.UploadIcon)
			}
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process fulfillment worker; cmd/worker runs the same loop standalone.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go fulfillmentProcessor.Run(workerCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
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
