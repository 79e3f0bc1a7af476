// Package main provides the entry point for the LinkLoom URL shortening service.
//
//	@title			LinkLoom API
//	@version		1.0.0
//	@description	URL shortening service with click analytics.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Authorization header. Format: "Bearer {token}"
package main

import (
	"LinkLoom-Backend/internal/auth"
	"LinkLoom-Backend/internal/cache"
	"LinkLoom-Backend/internal/clicks"
	"LinkLoom-Backend/internal/config"
	"LinkLoom-Backend/internal/database"
	httpHandler "LinkLoom-Backend/internal/handler/http"
	"LinkLoom-Backend/internal/repository/postgres"
	"LinkLoom-Backend/internal/safety"
	"LinkLoom-Backend/internal/service"
	"LinkLoom-Backend/internal/shortcode"
	"LinkLoom-Backend/pkg/logger"
	"LinkLoom-Backend/pkg/useragent"
	"context"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "LinkLoom-Backend/docs" // Import swagger docs
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting LinkLoom service", zap.String("env", cfg.Env))

	// Database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	if cfg.Database.SeedData {
		log.Info("seeding database with initial data (seed_data: true)")
		if err := database.SeedData(db, log); err != nil {
			log.Fatal("failed to seed database", zap.Error(err))
		}
	} else {
		log.Info("skipping database seeding (seed_data: false)")
	}

	// User-Agent parser for click device classification
	useragent.InitGlobalParser(log)

	storage := postgres.New(db, log)

	// Optional Redis resolution cache; nil when no host is configured
	linkCache, err := cache.New(&cfg.Redis, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	if linkCache != nil {
		defer func() {
			if err := linkCache.Close(); err != nil {
				log.Error("failed to close redis connection", zap.Error(err))
			}
		}()
	}

	// Destination safety verification, allow-all when no endpoint is set
	var checker safety.Checker = safety.AllowAll{}
	if cfg.Safety.Endpoint != "" {
		checker = safety.NewHTTPChecker(cfg.Safety.Endpoint, cfg.Safety.Timeout, log)
	}

	shortener := service.NewShortener(storage, shortcode.NewGenerator(), checker, &cfg.URLShortener, log)

	// Async click accounting
	accountant := clicks.NewAccountant(storage, log, clicks.Config{
		Workers:         cfg.Clicks.Workers,
		QueueSize:       cfg.Clicks.QueueSize,
		RetryAttempts:   cfg.Clicks.RetryAttempts,
		RetryDelay:      cfg.Clicks.RetryDelay,
		ShutdownTimeout: 30 * time.Second,
	})
	if err := accountant.Start(); err != nil {
		log.Fatal("failed to start click accountant", zap.Error(err))
	}

	jwtService := auth.NewJWTService(&auth.JWTConfig{
		SecretKey:            []byte(cfg.Auth.Secret),
		AccessTokenDuration:  cfg.Auth.AccessTokenTTL,
		RefreshTokenDuration: cfg.Auth.RefreshTokenTTL,
		Issuer:               cfg.Auth.Issuer,
	})
	passwordService := auth.NewPasswordService()

	apiServer := httpHandler.NewServer(
		storage,
		shortener,
		accountant,
		linkCache,
		jwtService,
		passwordService,
		cfg,
		log,
	)

	httpServer := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      apiServer.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server", zap.String("address", cfg.HTTPServer.Address))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down LinkLoom service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// Drain queued clicks before exit
	if err := accountant.Stop(); err != nil {
		log.Error("failed to stop click accountant", zap.Error(err))
	}
}
