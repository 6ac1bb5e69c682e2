package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uep/eventcheckin/services/gateway/internal/proxy"
)

type seen struct {
	method, path, query, auth, body, forwarded string
}

func upstream(t *testing.T, got *seen, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*got = seen{
			method:    r.Method,
			path:      r.URL.Path,
			query:     r.URL.RawQuery,
			auth:      r.Header.Get("Authorization"),
			body:      string(b),
			forwarded: r.Header.Get("X-Gateway-Forwarded"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(authURL, eventsURL string) http.Handler {
	r := chi.NewRouter()
	New(
		proxy.NewServiceProxy("auth", authURL, 5*time.Second),
		proxy.NewServiceProxy("events", eventsURL, 5*time.Second),
	).Routes(r)
	return r
}

func TestForward_AuthStripsPrefix(t *testing.T) {
	var authSeen, eventsSeen seen
	authSrv := upstream(t, &authSeen, http.StatusOK)
	eventsSrv := upstream(t, &eventsSeen, http.StatusOK)
	gw := newGateway(authSrv.URL, eventsSrv.URL)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"identifier":"ana"}`))
	rr := httptest.NewRecorder()
	gw.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/login", authSeen.path)
	assert.Equal(t, `{"identifier":"ana"}`, authSeen.body)
	assert.Equal(t, "true", authSeen.forwarded)
	assert.Empty(t, eventsSeen.path)
}

func TestForward_EventsKeepsQueryAndHeaders(t *testing.T) {
	var eventsSeen seen
	eventsSrv := upstream(t, &eventsSeen, http.StatusCreated)
	gw := newGateway("http://127.0.0.1:1", eventsSrv.URL)

	req := httptest.NewRequest(http.MethodGet, "/v1/events/e1/qr?ttl=60", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	gw.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/events/e1/qr", eventsSeen.path)
	assert.Equal(t, "ttl=60", eventsSeen.query)
	assert.Equal(t, "Bearer tok", eventsSeen.auth)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())
}

func TestForward_ScanRoute(t *testing.T) {
	var eventsSeen seen
	eventsSrv := upstream(t, &eventsSeen, http.StatusOK)
	gw := newGateway("http://127.0.0.1:1", eventsSrv.URL)

	req := httptest.NewRequest(http.MethodPost, "/v1/scan", strings.NewReader(`{"payload":"x"}`))
	rr := httptest.NewRecorder()
	gw.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.MethodPost, eventsSeen.method)
	assert.Equal(t, "/scan", eventsSeen.path)
}

func TestForward_UpstreamDown(t *testing.T) {
	gw := newGateway("http://127.0.0.1:1", "http://127.0.0.1:1")

	rr := httptest.NewRecorder()
	gw.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/events", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "UPSTREAM_UNAVAILABLE")
}

func TestForward_RejectsOversizedBody(t *testing.T) {
	var eventsSeen seen
	eventsSrv := upstream(t, &eventsSeen, http.StatusOK)
	gw := newGateway("http://127.0.0.1:1", eventsSrv.URL)

	big := strings.Repeat("x", maxBodyBytes+1)
	rr := httptest.NewRecorder()
	gw.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/scan", strings.NewReader(big)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Contains(t, rr.Body.String(), "PAYLOAD_TOO_LARGE")
	assert.Empty(t, eventsSeen.path, "oversized body must not reach the upstream")

	rr = httptest.NewRecorder()
	gw.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/scan", strings.NewReader(big[:maxBodyBytes])))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, eventsSeen.body, maxBodyBytes)
}

func TestForward_UnknownRoute(t *testing.T) {
	gw := newGateway("http://127.0.0.1:1", "http://127.0.0.1:1")

	rr := httptest.NewRecorder()
	gw.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tickets", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestShouldCopyHeader(t *testing.T) {
	assert.False(t, shouldCopyHeader("Connection"))
	assert.False(t, shouldCopyHeader("Transfer-Encoding"))
	assert.True(t, shouldCopyHeader("Authorization"))
	assert.True(t, shouldCopyHeader("Idempotency-Key"))
}
