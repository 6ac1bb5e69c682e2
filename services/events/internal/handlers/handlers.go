package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/uep/eventcheckin/pkg/auth"
	"github.com/uep/eventcheckin/pkg/config"
	mw "github.com/uep/eventcheckin/pkg/middleware"
	"github.com/uep/eventcheckin/services/events/internal/domain"
	"github.com/uep/eventcheckin/services/events/internal/service"
)

type Handlers struct {
	eventService      service.EventService
	attendanceService service.AttendanceService
	idempotency       mw.IdempotencyStore
	validate          *validator.Validate
	config            *config.Config
}

// New builds the handlers. idempotency may be nil, in which case POST
// requests are never replayed.
func New(
	eventService service.EventService,
	attendanceService service.AttendanceService,
	idempotency mw.IdempotencyStore,
	config *config.Config,
) *Handlers {
	return &Handlers{
		eventService:      eventService,
		attendanceService: attendanceService,
		idempotency:       idempotency,
		validate:          validator.New(validator.WithRequiredStructEnabled()),
		config:            config,
	}
}

// Routes mounts the events API.
func (h *Handlers) Routes(r chi.Router) {
	secret := h.config.Auth.JWTSecret
	idem := func(next http.Handler) http.Handler { return next }
	if h.idempotency != nil {
		idem = mw.IdempotencyMiddleware(h.idempotency, h.config.Redis.IdempotencyTTL)
	}

	r.Get("/business-models", h.ListBusinessModels)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.With(mw.RequireJWT(secret, auth.RoleOrganizer)).Post("/", h.CreateEvent)
		r.With(mw.RequireJWT(secret, auth.RoleOrganizer)).Post("/{id}/organizers", h.AddOrganizer)
		r.With(mw.RequireJWT(secret, auth.RoleStudent), idem).Post("/{id}/registrations", h.Register)
		r.With(mw.RequireJWT(secret, auth.RoleOrganizer, auth.RoleStudent)).Get("/{id}/qr", h.IssueQR)
	})

	r.With(mw.RequireJWT(secret, auth.RoleOrganizer)).Get("/organizer/events", h.ListOrganizerEvents)
	r.With(mw.RequireJWT(secret, auth.RoleStudent)).Get("/me/registrations", h.ListMyRegistrations)
	r.With(mw.RequireJWT(secret, auth.RoleStudent, auth.RoleOrganizer), idem).Post("/scan", h.Scan)
	r.With(mw.RequireJWT(secret, auth.RoleAdmin)).Get("/admin/attendance/summary", h.AttendanceSummary)
}

func actorFrom(r *http.Request) (domain.Actor, bool) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		return domain.Actor{}, false
	}
	return domain.Actor{UserID: claims.Sub, Email: claims.Email, Role: claims.Role}, true
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
	limit = 20
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

// optionalInt parses a positive integer query parameter. ok is false when
// the parameter is present but malformed.
func optionalInt(r *http.Request, name string) (v *int, ok bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return nil, false
	}
	return &n, true
}
