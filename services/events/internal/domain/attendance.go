package domain

import "time"

type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "REGISTERED"
	StatusAttended   RegistrationStatus = "ATTENDED"
)

func ParseRegistrationStatus(s string) (RegistrationStatus, bool) {
	switch RegistrationStatus(s) {
	case StatusRegistered, StatusAttended:
		return RegistrationStatus(s), true
	default:
		return "", false
	}
}

// Registration is created at sign-up and moves to ATTENDED once, when the
// student's QR is redeemed.
type Registration struct {
	EventID      string             `json:"event_id"`
	UserID       string             `json:"user_id"`
	Status       RegistrationStatus `json:"status"`
	RegisteredAt time.Time          `json:"registered_at"`
	AttendedAt   *time.Time         `json:"attended_at,omitempty"`
	EventName    string             `json:"event_name,omitempty"`
	EventDate    *time.Time         `json:"event_date,omitempty"`
}

// CheckIn is an append-only attendance row, one per event and user.
type CheckIn struct {
	ID          int64     `json:"id"`
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	CheckinTime time.Time `json:"checkin_time"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	Valid       bool      `json:"valid"`
	Source      string    `json:"source"`
	EventName   string    `json:"event_name,omitempty"`
}

const (
	CheckinMethodQR      = "QR"
	CheckinStatusPresent = "present"
)

// IssueQRRequest is built from query parameters. A zero TTL picks the
// configured default for the kind of code being issued.
type IssueQRRequest struct {
	UserID  string
	TTL     time.Duration
	Format  string
	Dialect string
}

type QRResponse struct {
	Payload   string    `json:"payload"`
	Format    string    `json:"format"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"exp"`
	Nonce     string    `json:"nonce"`
}

type ScanRequest struct {
	Raw     string `json:"raw" validate:"required,max=4096"`
	EventID string `json:"event_id" validate:"omitempty,max=64"`
}

// Actor is the authenticated caller, taken from the access token.
type Actor struct {
	UserID string
	Email  string
	Role   string
}

type ScanStatus string

const (
	ScanAttended         ScanStatus = "attended"
	ScanAlreadyCheckedIn ScanStatus = "already_checked_in"
)

type ScanResult struct {
	Status     ScanStatus `json:"status"`
	Message    string     `json:"message"`
	EventID    string     `json:"event_id"`
	EventName  string     `json:"event_name,omitempty"`
	UserID     string     `json:"user_id"`
	RecordedAt time.Time  `json:"recorded_at"`
}

type AttendanceSummary struct {
	EventID string         `json:"event_id,omitempty"`
	Counts  map[string]int `json:"counts"`
	Total   int            `json:"total"`
}
