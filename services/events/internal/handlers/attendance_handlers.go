package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/uep/eventcheckin/pkg/logger"
	"github.com/uep/eventcheckin/pkg/qrpayload"
	"github.com/uep/eventcheckin/services/events/internal/domain"
	"github.com/uep/eventcheckin/services/events/internal/service"
)

// IssueQR returns a fresh payload for the event. ttl accepts Go durations
// ("30s", "24h") or a plain number of seconds.
func (h *Handlers) IssueQR(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	q := r.URL.Query()
	req := domain.IssueQRRequest{
		UserID:  q.Get("user_id"),
		Format:  q.Get("format"),
		Dialect: q.Get("dialect"),
	}
	if raw := q.Get("ttl"); raw != "" {
		ttl, err := parseTTL(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid ttl parameter", "INVALID_QUERY")
			return
		}
		req.TTL = ttl
	}

	qr, err := h.attendanceService.IssueQR(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTTLTooLong), errors.Is(err, qrpayload.ErrInvalidTTL):
			writeError(w, http.StatusBadRequest, "ttl is out of range", "INVALID_TTL")
		case errors.Is(err, service.ErrInvalidFormat), errors.Is(err, service.ErrInvalidDialect):
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_QUERY")
		default:
			h.writeEventError(w, r, err)
		}
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, qr)
}

func parseTTL(raw string) (time.Duration, error) {
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

// Scan redeems a payload read by the caller's camera. Validation failures
// answer 422 with the reason code and a message fit for the scanner screen.
func (h *Handlers) Scan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	var req domain.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	res, err := h.attendanceService.Redeem(r.Context(), actor, &req)
	if err != nil {
		status, message := scanErrorStatus(err)
		writeError(w, status, message, service.Reason(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func scanErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, qrpayload.ErrUnrecognized),
		errors.Is(err, qrpayload.ErrIncomplete),
		errors.Is(err, qrpayload.ErrInvalidIdentifiers),
		errors.Is(err, qrpayload.ErrWrongUser),
		errors.Is(err, qrpayload.ErrWrongEvent),
		errors.Is(err, qrpayload.ErrExpired):
		return http.StatusUnprocessableEntity, qrpayload.Message(err)
	case errors.Is(err, service.ErrNotRegistered):
		return http.StatusNotFound, "You are not registered for this event."
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "You do not organize this event."
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Could not reach the database."
	default:
		return http.StatusInternalServerError, qrpayload.Message(err)
	}
}

func (h *Handlers) AttendanceSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.attendanceService.Summary(r.Context(), r.URL.Query().Get("event_id"))
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load attendance summary", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to load attendance summary", "INTERNAL_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
