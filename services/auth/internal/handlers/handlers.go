package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/uep/eventcheckin/pkg/auth"
	"github.com/uep/eventcheckin/pkg/config"
	"github.com/uep/eventcheckin/pkg/logger"
	mw "github.com/uep/eventcheckin/pkg/middleware"
	"github.com/uep/eventcheckin/services/auth/internal/service"
)

// RateLimiter counts hits per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Handlers struct {
	authService service.AuthService
	limiter     RateLimiter
	validate    *validator.Validate
	config      *config.Config
}

// New builds the auth handlers. limiter may be nil to disable login rate
// limiting.
func New(authService service.AuthService, limiter RateLimiter, config *config.Config) *Handlers {
	return &Handlers{
		authService: authService,
		limiter:     limiter,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		config:      config,
	}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Post("/register", h.Register)
	r.With(h.LoginRateLimit(10, time.Minute)).Post("/login", h.Login)
	r.Post("/refresh", h.RefreshToken)
	r.Get("/faculties", h.ListFaculties)
	r.With(mw.RequireJWT(h.config.Auth.JWTSecret, auth.RoleOrganizer)).Get("/students", h.ListStudents)
}

// LoginRateLimit allows limit attempts per client IP per window. Limiter
// failures let the request through.
func (h *Handlers) LoginRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := h.limiter.Allow(r.Context(), "login:"+getClientIP(r), limit, window)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", logger.Err(err))
			} else if !allowed {
				writeError(w, http.StatusTooManyRequests, "Too many login attempts. Please try again later.", "RATE_LIMIT_EXCEEDED")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	writeJSON(w, statusCode, map[string]string{"error": message, "code": code})
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
