package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/uep/eventcheckin/pkg/config"
	"github.com/uep/eventcheckin/pkg/logger"
	mw "github.com/uep/eventcheckin/pkg/middleware"
	"github.com/uep/eventcheckin/services/gateway/internal/handlers"
	"github.com/uep/eventcheckin/services/gateway/internal/proxy"
)

func main() {
	cfg := config.Load()

	authProxy := proxy.NewServiceProxy("auth", cfg.Services.AuthURL, cfg.Server.WriteTimeout)
	eventsProxy := proxy.NewServiceProxy("events", cfg.Services.EventsURL, cfg.Server.WriteTimeout)
	h := handlers.New(authProxy, eventsProxy)

	metrics := mw.NewMetrics("gateway")

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gateway"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)
	r.Use(metrics.Middleware)
	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.GatewayPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gateway service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Gateway shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Starting gateway service",
		"port", cfg.Server.GatewayPort,
		"auth_url", cfg.Services.AuthURL,
		"events_url", cfg.Services.EventsURL,
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Gateway server error", logger.Err(err))
		os.Exit(1)
	}
}
