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
	"github.com/uep/eventcheckin/pkg/events"
	"github.com/uep/eventcheckin/pkg/logger"
	mw "github.com/uep/eventcheckin/pkg/middleware"
	"github.com/uep/eventcheckin/pkg/qrpayload"
	"github.com/uep/eventcheckin/services/events/internal/handlers"
	"github.com/uep/eventcheckin/services/events/internal/repository"
	"github.com/uep/eventcheckin/services/events/internal/service"
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

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", logger.Err(err))
		os.Exit(1)
	}
	defer eventBus.Close()

	// Without Redis the API still works; POST retries are just not replayed.
	var idempotency mw.IdempotencyStore
	if store, err := cache.New(cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, idempotency disabled", logger.Err(err))
	} else if err := store.Ping(ctx); err != nil {
		logger.Warn("Redis unavailable, idempotency disabled", logger.Err(err))
		_ = store.Close()
	} else {
		defer store.Close()
		idempotency = store
	}

	metrics := mw.NewMetrics("events")

	eventRepo := repository.NewEventRepository(pool)
	registrationRepo := repository.NewRegistrationRepository(pool)
	checkInRepo := repository.NewCheckInRepository(pool)

	validator := qrpayload.NewValidator(qrpayload.Policy{
		StrictIDs:      cfg.QR.StrictIDs,
		AllowEventWide: cfg.QR.AllowEventWide,
	})

	eventService := service.NewEventService(eventRepo, registrationRepo, eventBus)
	attendanceService := service.NewAttendanceService(
		eventRepo, registrationRepo, checkInRepo, eventBus,
		qrpayload.NewEncoder(), validator, metrics, cfg,
	)

	h := handlers.New(eventService, attendanceService, idempotency, cfg)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("events"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.Health)
	r.Use(metrics.Middleware)
	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.EventsPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down events service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Events service shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Starting events service",
		"port", cfg.Server.EventsPort,
		"attendance_mode", cfg.Attendance.Mode,
		"strict_ids", cfg.QR.StrictIDs,
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Events service error", logger.Err(err))
		os.Exit(1)
	}
}
