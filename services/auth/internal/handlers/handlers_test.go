package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uep/eventcheckin/pkg/auth"
	"github.com/uep/eventcheckin/pkg/config"
	"github.com/uep/eventcheckin/services/auth/internal/domain"
	"github.com/uep/eventcheckin/services/auth/internal/service"
)

type stubAuthService struct {
	service.AuthService
	registered *domain.CreateUserRequest
	loginErr   error
}

func (s *stubAuthService) Register(_ context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	s.registered = req
	return &domain.User{ID: "u1", Role: req.Role, Email: req.Email, Username: req.Username}, nil
}

func (s *stubAuthService) Login(context.Context, *domain.LoginRequest) (*domain.LoginResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &domain.LoginResponse{AccessToken: "tok"}, nil
}

func (s *stubAuthService) ListStudents(context.Context, domain.StudentFilter) ([]domain.User, error) {
	return []domain.User{{ID: "s1", Role: auth.RoleStudent, PasswordHash: "secret-hash"}}, nil
}

type countingLimiter struct {
	limit int
	hits  map[string]int
}

func (c *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	c.hits[key]++
	return c.hits[key] <= c.limit, nil
}

func newRouter(svc service.AuthService, limiter RateLimiter) http.Handler {
	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: "secret"}}
	r := chi.NewRouter()
	New(svc, limiter, cfg).Routes(r)
	return r
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = "10.0.0.7:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRegister_ValidatesStudentFaculty(t *testing.T) {
	svc := &stubAuthService{}
	h := newRouter(svc, nil)

	rr := post(h, "/register", `{"email":"ana@uep.edu","password":"correct-horse","full_name":"Ana"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Nil(t, svc.registered)

	rr = post(h, "/register", `{"email":"ana@uep.edu","password":"correct-horse","full_name":"Ana","faculty_id":2}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "ana", svc.registered.Username)
	assert.Equal(t, auth.RoleStudent, svc.registered.Role)
}

func TestRegister_OrganizerNeedsNoFaculty(t *testing.T) {
	svc := &stubAuthService{}
	h := newRouter(svc, nil)

	rr := post(h, "/register", `{"role":"ORGANIZER","email":"club@uep.edu","username":"chess","password":"correct-horse","full_name":"Chess Club"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "chess", svc.registered.Username)
}

func TestRegister_RejectsAdminRole(t *testing.T) {
	h := newRouter(&stubAuthService{}, nil)

	rr := post(h, "/register", `{"role":"ADMIN","email":"x@uep.edu","username":"root","password":"correct-horse","full_name":"Root"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin_Errors(t *testing.T) {
	h := newRouter(&stubAuthService{loginErr: service.ErrInvalidCredentials}, nil)

	assert.Equal(t, http.StatusBadRequest, post(h, "/login", `{"identifier":"","password":"x"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(h, "/login", `{"identifier":"ana","password":"x"}`).Code)
}

func TestLogin_RateLimited(t *testing.T) {
	limiter := &countingLimiter{limit: 2, hits: map[string]int{}}
	h := newRouter(&stubAuthService{}, limiter)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, post(h, "/login", `{"identifier":"ana","password":"x"}`).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, post(h, "/login", `{"identifier":"ana","password":"x"}`).Code)
	assert.Equal(t, 3, limiter.hits["login:10.0.0.7"])
}

func TestListStudents_RequiresOrganizer(t *testing.T) {
	h := newRouter(&stubAuthService{}, nil)

	get := func(role string) *httptest.ResponseRecorder {
		tok, err := auth.NewAccessToken("u1", "u1@uep.edu", role, "secret", time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/students", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusForbidden, get(auth.RoleStudent).Code)
	rr := get(auth.RoleOrganizer)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret-hash")
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", getClientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	assert.Equal(t, "9.9.9.9", getClientIP(req))
}
