package qrpayload

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Validation failures, in the order the checks run. The error text is safe
// to show to the person holding the scanner.
var (
	ErrUnrecognized       = errors.New("QR format not recognized")
	ErrIncomplete         = errors.New("incomplete QR (missing event_id / user_id)")
	ErrInvalidIdentifiers = errors.New("QR identifiers are not valid")
	ErrWrongUser          = errors.New("this QR belongs to another user")
	ErrWrongEvent         = errors.New("this QR is for a different event")
	ErrExpired            = errors.New("QR expired")
)

// ScanContext carries what the scanning side knows. Empty values skip the
// corresponding check.
type ScanContext struct {
	UserID  string
	EventID string
}

type Policy struct {
	// StrictIDs requires both identifiers to be canonical UUIDv4 strings.
	StrictIDs bool
	// AllowEventWide lets a code without a user id be redeemed by the
	// scanning user. Off by default: such codes are rejected as incomplete.
	AllowEventWide bool
}

// Claim is a payload that passed every check and may be redeemed.
type Claim struct {
	EventID   string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Nonce     string
}

type Validator struct {
	policy Policy
	now    func() time.Time
}

type ValidatorOption func(*Validator)

func WithValidatorClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

func NewValidator(policy Policy, opts ...ValidatorOption) *Validator {
	v := &Validator{policy: policy, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) Policy() Policy { return v.policy }

// Check decodes raw and validates the result.
func (v *Validator) Check(raw string, sc ScanContext) (Claim, error) {
	fields, err := Decode(raw)
	if err != nil {
		return Claim{}, err
	}
	return v.Validate(fields, sc)
}

// Validate runs the redemption checks in order and stops at the first
// failure. It performs no I/O.
func (v *Validator) Validate(fields Fields, sc ScanContext) (Claim, error) {
	if len(fields) == 0 {
		return Claim{}, ErrUnrecognized
	}

	scanner := strings.TrimSpace(sc.UserID)
	eventID := fields.EventID()
	userID := fields.UserID()
	if userID == "" && v.policy.AllowEventWide && scanner != "" {
		userID = scanner
	}
	if eventID == "" || userID == "" {
		return Claim{}, ErrIncomplete
	}

	if v.policy.StrictIDs && !(isUUIDv4(eventID) && isUUIDv4(userID)) {
		return Claim{}, ErrInvalidIdentifiers
	}

	if scanner != "" && !sameID(userID, scanner) {
		return Claim{}, ErrWrongUser
	}
	if want := strings.TrimSpace(sc.EventID); want != "" && !sameID(eventID, want) {
		return Claim{}, ErrWrongEvent
	}

	claim := Claim{EventID: eventID, UserID: userID, Nonce: fields.Nonce()}
	if t, ok := parseTime(fields.IssuedAt()); ok {
		claim.IssuedAt = t
	}
	if exp := fields.Exp(); exp != "" {
		t, ok := parseTime(exp)
		if !ok {
			return Claim{}, fmt.Errorf("%w: unreadable exp %q", ErrExpired, exp)
		}
		if !v.now().Before(t) {
			return Claim{}, ErrExpired
		}
		claim.ExpiresAt = t
	}
	return claim, nil
}

// UUIDs are compared case-insensitively; anything else must match exactly.
func sameID(a, b string) bool {
	if isUUID(a) && isUUID(b) {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isUUIDv4(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Version() == 4 && id.Variant() == uuid.RFC4122
}

// Message returns the user-facing text for a validation error, or a generic
// text for anything else.
func Message(err error) string {
	for _, known := range []error{
		ErrUnrecognized, ErrIncomplete, ErrInvalidIdentifiers,
		ErrWrongUser, ErrWrongEvent, ErrExpired,
	} {
		if errors.Is(err, known) {
			return capitalize(known.Error()) + "."
		}
	}
	return "Could not process the QR."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
