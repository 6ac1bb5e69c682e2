package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/uep/eventcheckin/pkg/auth"
)

type User struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	FacultyID    *int      `json:"faculty_id,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateUserRequest registers a student or an organizer. Students must give
// a faculty; their username is the local part of the e-mail.
type CreateUserRequest struct {
	Role      string `json:"role" validate:"required,oneof=STUDENT ORGANIZER"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"omitempty,min=3,max=64,excludes=@"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FullName  string `json:"full_name" validate:"required,min=2,max=120"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	FacultyID *int   `json:"faculty_id" validate:"required_if=Role STUDENT,omitempty,gt=0"`
}

func (r *CreateUserRequest) Normalize() {
	r.Role = strings.ToUpper(strings.TrimSpace(r.Role))
	if r.Role == "" {
		r.Role = auth.RoleStudent
	}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	r.FullName = strings.TrimSpace(r.FullName)
	r.Phone = normalizePhone(r.Phone)
	if r.Role == auth.RoleStudent || r.Username == "" {
		if at := strings.IndexByte(r.Email, '@'); at > 0 {
			r.Username = r.Email[:at]
		}
	}
}

// normalizePhone keeps digits and a leading '+'.
func normalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if (i == 0 && r == '+') || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LoginRequest identifies students by e-mail and organizers by username.
// Identifier accepts either.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Identifier = strings.ToLower(strings.TrimSpace(r.Identifier))
}

// IsEmail reports whether the identifier should be looked up as an e-mail.
func (r *LoginRequest) IsEmail() bool {
	return strings.Contains(r.Identifier, "@")
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int64     `json:"expires_in"`
	User         *UserInfo `json:"user"`
}

type UserInfo struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	FacultyID *int   `json:"faculty_id,omitempty"`
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:        u.ID,
		Role:      u.Role,
		Email:     u.Email,
		Username:  u.Username,
		FullName:  u.FullName,
		FacultyID: u.FacultyID,
	}
}

type StudentFilter struct {
	FacultyID *int
	Search    string
	Limit     int
	Offset    int
}

type Faculty struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
