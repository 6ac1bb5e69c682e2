package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/uep/eventcheckin/pkg/logger"
	"github.com/uep/eventcheckin/services/auth/internal/domain"
	"github.com/uep/eventcheckin/services/auth/internal/service"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}
	req.Normalize()
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			writeError(w, http.StatusConflict, err.Error(), "USER_EXISTS")
			return
		}
		logger.ErrorContext(r.Context(), "Registration failed", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Registration failed", "REGISTRATION_FAILED")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful.",
		"user":    user.ToUserInfo(),
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}
	req.Normalize()
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials", "LOGIN_FAILED")
			return
		}
		logger.ErrorContext(r.Context(), "Login failed", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Login failed", "INTERNAL_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	resp, err := h.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			writeError(w, http.StatusUnauthorized, "Invalid refresh token", "REFRESH_FAILED")
			return
		}
		logger.ErrorContext(r.Context(), "Token refresh failed", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Token refresh failed", "INTERNAL_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListStudents serves the organizer's student picker.
func (h *Handlers) ListStudents(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := domain.StudentFilter{Search: r.URL.Query().Get("q"), Limit: limit, Offset: offset}
	if v := r.URL.Query().Get("faculty"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid faculty parameter", "INVALID_INPUT")
			return
		}
		filter.FacultyID = &id
	}

	users, err := h.authService.ListStudents(r.Context(), filter)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list students", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to list students", "INTERNAL_ERROR")
		return
	}

	infos := make([]*domain.UserInfo, len(users))
	for i := range users {
		infos[i] = users[i].ToUserInfo()
	}
	writeJSON(w, http.StatusOK, infos)
}

func (h *Handlers) ListFaculties(w http.ResponseWriter, r *http.Request) {
	faculties, err := h.authService.ListFaculties(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list faculties", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to list faculties", "INTERNAL_ERROR")
		return
	}
	if faculties == nil {
		faculties = []domain.Faculty{}
	}
	writeJSON(w, http.StatusOK, faculties)
}
