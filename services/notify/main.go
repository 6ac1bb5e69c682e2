package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/uep/eventcheckin/pkg/config"
	"github.com/uep/eventcheckin/pkg/events"
	"github.com/uep/eventcheckin/pkg/logger"
	mw "github.com/uep/eventcheckin/pkg/middleware"
	"github.com/uep/eventcheckin/services/notify/internal/consumer"
	"github.com/uep/eventcheckin/services/notify/internal/mailer"
)

func main() {
	cfg := config.Load()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", logger.Err(err))
		os.Exit(1)
	}

	metrics := mw.NewMetrics("notify")
	c := consumer.New(mailer.New(cfg.Email), metrics)
	if err := c.Start(eventBus, cfg.NATS.Queue); err != nil {
		logger.Error("Failed to subscribe", logger.Err(err))
		os.Exit(1)
	}

	// Only health and metrics; the work arrives over NATS.
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Recoverer)
	r.Use(mw.Health)
	r.Use(metrics.Middleware)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.NotifyPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down notify service...")

		// Drain lets in-flight deliveries finish before the connection closes.
		if err := eventBus.Close(); err != nil {
			logger.Error("NATS drain error", logger.Err(err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Notify service shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Starting notify service", "port", cfg.Server.NotifyPort, "queue", cfg.NATS.Queue)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Notify service error", logger.Err(err))
		os.Exit(1)
	}
}
