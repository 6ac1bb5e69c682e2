package service

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uep/eventcheckin/pkg/auth"
	"github.com/uep/eventcheckin/pkg/config"
	"github.com/uep/eventcheckin/services/auth/internal/domain"
	"github.com/uep/eventcheckin/services/auth/internal/repository"
)

type mockUserRepo struct {
	users map[string]*domain.User // by id
}

func (m *mockUserRepo) Create(_ context.Context, req *domain.CreateUserRequest, hash string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == req.Email || u.Username == req.Username {
			return nil, repository.ErrDuplicate
		}
	}
	u := &domain.User{
		ID: "id-" + req.Username, Role: req.Role, Email: req.Email, Username: req.Username,
		FullName: req.FullName, FacultyID: req.FacultyID, PasswordHash: hash,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserRepo) find(match func(*domain.User) bool) *domain.User {
	for _, u := range m.users {
		if match(u) {
			return u
		}
	}
	return nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Email == email }), nil
}

func (m *mockUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Username == username }), nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) ListStudents(context.Context, domain.StudentFilter) ([]domain.User, error) {
	var out []domain.User
	for _, u := range m.users {
		if u.Role == auth.RoleStudent {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) ListFaculties(context.Context) ([]domain.Faculty, error) {
	return []domain.Faculty{{ID: 1, Name: "Engineering"}}, nil
}

func newTestService() (*authService, *mockUserRepo) {
	repo := &mockUserRepo{users: map[string]*domain.User{}}
	cfg := &config.Config{Auth: config.AuthConfig{
		JWTSecret:       "secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	}}
	svc := NewAuthService(repo, cfg).(*authService)
	svc.params = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	return svc, repo
}

func registerStudent(t *testing.T, svc *authService) *domain.User {
	t.Helper()
	faculty := 1
	req := &domain.CreateUserRequest{Email: "Ana.Lopez@UEP.edu ", Password: "correct-horse", FullName: "Ana Lopez", FacultyID: &faculty}
	req.Normalize()
	u, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	return u
}

func TestRegister_StudentUsernameFromEmail(t *testing.T) {
	svc, _ := newTestService()

	u := registerStudent(t, svc)
	assert.Equal(t, auth.RoleStudent, u.Role)
	assert.Equal(t, "ana.lopez@uep.edu", u.Email)
	assert.Equal(t, "ana.lopez", u.Username)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)
}

func TestRegister_Duplicate(t *testing.T) {
	svc, _ := newTestService()
	registerStudent(t, svc)

	faculty := 1
	req := &domain.CreateUserRequest{Email: "ana.lopez@uep.edu", Password: "another-pass", FullName: "Ana", FacultyID: &faculty}
	req.Normalize()
	_, err := svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLogin_ByEmailAndByUsername(t *testing.T) {
	svc, _ := newTestService()
	registerStudent(t, svc)

	org := &domain.CreateUserRequest{Role: "organizer", Email: "club@uep.edu", Username: "chess-club", Password: "organizer-pass", FullName: "Chess Club"}
	org.Normalize()
	_, err := svc.Register(context.Background(), org)
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{Identifier: "ana.lopez@uep.edu", Password: "correct-horse"})
	require.NoError(t, err)
	claims, err := auth.Parse(resp.AccessToken, "secret")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleStudent, claims.Role)
	assert.Equal(t, int64(900), resp.ExpiresIn)

	resp, err = svc.Login(context.Background(), &domain.LoginRequest{Identifier: "chess-club", Password: "organizer-pass"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleOrganizer, resp.User.Role)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newTestService()
	registerStudent(t, svc)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{Identifier: "ana.lopez@uep.edu", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), &domain.LoginRequest{Identifier: "nobody", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshToken(t *testing.T) {
	svc, _ := newTestService()
	registerStudent(t, svc)

	login, err := svc.Login(context.Background(), &domain.LoginRequest{Identifier: "ana.lopez@uep.edu", Password: "correct-horse"})
	require.NoError(t, err)

	resp, err := svc.RefreshToken(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.RefreshToken(context.Background(), login.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh, "access tokens are not refresh tokens")
}
