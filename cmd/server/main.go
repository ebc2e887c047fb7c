package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sharestore/sharestore/internal/auth"
	"github.com/sharestore/sharestore/internal/config"
	"github.com/sharestore/sharestore/internal/handlers"
	"github.com/sharestore/sharestore/internal/middleware"
	"github.com/sharestore/sharestore/internal/repository"
	"github.com/sharestore/sharestore/internal/services/relay"
	"github.com/sharestore/sharestore/internal/services/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.Open(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse redis URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	storageService, err := storage.NewService(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	relayService := relay.NewService(cfg, nil)
	revocationList := auth.NewRevocationList(redisClient)

	router := setupRouter(cfg, db, storageService, relayService, revocationList)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func setupRouter(cfg *config.Config, db *sql.DB, storageService *storage.Service, relayService *relay.Service, revocationList *auth.RevocationList) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))
	router.Use(middleware.RateLimit(cfg))

	users := repository.NewUserRepository(db)
	files := repository.NewFileRepository(db)
	shares := repository.NewShareRepository(db)

	authHandler := handlers.NewAuthHandler(users, files, storageService, revocationList, cfg)
	fileHandler := handlers.NewFileHandler(files, shares, storageService, relayService, cfg.MaxFileSize)
	shareHandler := handlers.NewShareHandler(files, shares, users)

	router.GET("/health", handlers.Health(db))

	api := router.Group("/api/v1")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.Auth(cfg, revocationList))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.POST("/auth/password", authHandler.ChangePassword)
		protected.DELETE("/auth/account", authHandler.DeleteAccount)

		protected.POST("/files", fileHandler.Upload)
		protected.GET("/files", fileHandler.List)
		protected.GET("/files/accessible", fileHandler.ListAccessible)
		protected.GET("/files/shared", fileHandler.ListShared)
		protected.GET("/files/shared-with-me", fileHandler.ListSharedWithMe)
		protected.GET("/files/:id", fileHandler.Get)
		protected.GET("/files/:id/download", fileHandler.Download)
		protected.DELETE("/files/:id", fileHandler.Delete)

		protected.PUT("/files/:id/permissions", shareHandler.SetPermissions)
		protected.DELETE("/files/:id/permissions", shareHandler.RevokePermission)
		protected.GET("/files/:id/recipients", shareHandler.ListRecipients)
	}

	return router
}
