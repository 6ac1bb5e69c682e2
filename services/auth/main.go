package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/uep/eventcheckin/pkg/cache"
	"github.com/uep/eventcheckin/pkg/config"
	"github.com/uep/eventcheckin/pkg/database"
	"github.com/uep/eventcheckin/pkg/logger"
	mw "github.com/uep/eventcheckin/pkg/middleware"
	"github.com/uep/eventcheckin/services/auth/internal/handlers"
	"github.com/uep/eventcheckin/services/auth/internal/repository"
	"github.com/uep/eventcheckin/services/auth/internal/service"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", logger.Err(err))
		os.Exit(1)
	}
	defer pool.Close()

	var limiter handlers.RateLimiter
	if store, err := cache.New(cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, login rate limiting disabled", logger.Err(err))
	} else {
		defer store.Close()
		limiter = store
	}

	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(userRepo, cfg)
	h := handlers.New(authService, limiter, cfg)

	metrics := mw.NewMetrics("auth")

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("auth"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.Health)
	r.Use(metrics.Middleware)
	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.AuthPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down auth service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Auth service shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Starting auth service", "port", cfg.Server.AuthPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Auth service error", logger.Err(err))
		os.Exit(1)
	}
}
