package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/uep/eventcheckin/pkg/logger"
	"github.com/uep/eventcheckin/services/gateway/internal/proxy"
)

// maxBodyBytes caps what the gateway buffers per request.
const maxBodyBytes = 1 << 20

type Handlers struct {
	authProxy   *proxy.ServiceProxy
	eventsProxy *proxy.ServiceProxy
}

func New(authProxy, eventsProxy *proxy.ServiceProxy) *Handlers {
	return &Handlers{
		authProxy:   authProxy,
		eventsProxy: eventsProxy,
	}
}

// Routes mounts the public /v1 surface. Auth paths lose their /v1/auth
// prefix, everything else only loses /v1.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Handle("/auth/*", h.forward(h.authProxy, "/v1/auth"))

		events := h.forward(h.eventsProxy, "/v1")
		r.Handle("/events", events)
		r.Handle("/events/*", events)
		r.Handle("/organizer/*", events)
		r.Handle("/me/*", events)
		r.Handle("/admin/*", events)
		r.Handle("/scan", events)
		r.Handle("/business-models", events)
	})
}

func (h *Handlers) forward(p *proxy.ServiceProxy, stripPrefix string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, stripPrefix)
		if path == "" {
			path = "/"
		}
		proxyRequest(w, r, p, path)
	})
}

func proxyRequest(w http.ResponseWriter, r *http.Request, p *proxy.ServiceProxy, path string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", "PAYLOAD_TOO_LARGE")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read request body", "INVALID_INPUT")
		return
	}
	defer r.Body.Close()

	header := make(http.Header)
	for key, values := range r.Header {
		if shouldCopyHeader(key) {
			header[key] = values
		}
	}

	resp, err := p.Do(r.Context(), r.Method, path, r.URL.RawQuery, body, header)
	if err != nil {
		logger.ErrorContext(r.Context(), "Service proxy error", logger.Err(err), "service", p.Name(), "path", path)
		writeError(w, http.StatusBadGateway, "Service unavailable", "UPSTREAM_UNAVAILABLE")
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if !shouldCopyHeader(key) {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.ErrorContext(r.Context(), "Failed to copy response body", logger.Err(err))
	}
}

var hopHeaders = map[string]bool{
	"host":                true,
	"connection":          true,
	"upgrade":             true,
	"proxy-connection":    true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"keep-alive":          true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"content-length":      true,
}

func shouldCopyHeader(key string) bool {
	return !hopHeaders[strings.ToLower(key)]
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
