package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uep/eventcheckin/pkg/logger"
	"github.com/uep/eventcheckin/services/events/internal/domain"
	"github.com/uep/eventcheckin/services/events/internal/service"
)

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	faculty, ok := optionalInt(r, "faculty")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid faculty parameter", "INVALID_QUERY")
		return
	}
	model, ok := optionalInt(r, "model")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid model parameter", "INVALID_QUERY")
		return
	}
	limit, offset := parsePagination(r)

	evs, err := h.eventService.ListEvents(r.Context(), domain.EventFilter{
		FacultyID:       faculty,
		BusinessModelID: model,
		Search:          r.URL.Query().Get("q"),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list events", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to list events", "INTERNAL_ERROR")
		return
	}
	if evs == nil {
		evs = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, evs)
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.eventService.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	var req domain.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_JSON")
		return
	}
	req.Normalize()
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	ev, err := h.eventService.CreateEvent(r.Context(), actor, &req)
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *Handlers) AddOrganizer(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	var req domain.AddOrganizerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	if err := h.eventService.AddOrganizer(r.Context(), actor, chi.URLParam(r, "id"), req.UserID); err != nil {
		h.writeEventError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListOrganizerEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	evs, err := h.eventService.ListOrganizerEvents(r.Context(), actor)
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}
	if evs == nil {
		evs = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, evs)
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	reg, err := h.eventService.Register(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (h *Handlers) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	regs, err := h.eventService.ListRegistrations(r.Context(), actor)
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}
	if regs == nil {
		regs = []domain.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

func (h *Handlers) ListBusinessModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.eventService.ListBusinessModels(r.Context())
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}
	if models == nil {
		models = []domain.Lookup{}
	}
	writeJSON(w, http.StatusOK, models)
}

func (h *Handlers) writeEventError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "Event not found", "EVENT_NOT_FOUND")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "You do not organize this event", "FORBIDDEN")
	case errors.Is(err, service.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "Already registered for this event", "ALREADY_REGISTERED")
	case errors.Is(err, service.ErrAlreadyOrganizer):
		writeError(w, http.StatusConflict, "User already organizes this event", "ALREADY_ORGANIZER")
	case errors.Is(err, service.ErrEventFull):
		writeError(w, http.StatusConflict, "Event is full", "EVENT_FULL")
	case errors.Is(err, service.ErrUnknownUser):
		writeError(w, http.StatusNotFound, "User not found", "USER_NOT_FOUND")
	default:
		logger.ErrorContext(r.Context(), "Events request failed", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
	}
}
