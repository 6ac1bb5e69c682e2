// Package qrpayload builds, parses and validates the attendance payloads
// carried inside event QR codes.
//
// A payload travels either as a flat JSON object or as a ";"-separated list
// of key=value pairs. Two field-name dialects exist on the wire: the
// canonical one (event_id, user_id) and a legacy one (evento_id, usuario_id)
// still printed on older badges. Both are accepted when decoding.
package qrpayload

import (
	"strings"
	"time"
)

// Kind is the value of the "type" field on every attendance payload.
const Kind = "attendance"

// TimeLayout is the timestamp layout used for issued_at and exp.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FixedTTL bounds payloads issued by flows that expose no TTL control,
// such as the per-student badge.
const FixedTTL = 24 * time.Hour

const (
	keyType          = "type"
	keyEventID       = "event_id"
	keyUserID        = "user_id"
	keyLegacyEventID = "evento_id"
	keyLegacyUserID  = "usuario_id"
	keyIssuedAt      = "issued_at"
	keyExp           = "exp"
	keyNonce         = "nonce"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatKV   Format = "kv"
)

func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, true
	case FormatKV:
		return FormatKV, true
	default:
		return "", false
	}
}

// Dialect selects the field names used when encoding.
type Dialect int

const (
	Canonical Dialect = iota
	// Deprecated: Legacy emits evento_id/usuario_id for scanners that only
	// understand the old names. Decoding accepts both dialects regardless.
	Legacy
)

func ParseDialect(s string) (Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "canonical":
		return Canonical, true
	case "legacy":
		return Legacy, true
	default:
		return Canonical, false
	}
}

func (d Dialect) eventKey() string {
	if d == Legacy {
		return keyLegacyEventID
	}
	return keyEventID
}

func (d Dialect) userKey() string {
	if d == Legacy {
		return keyLegacyUserID
	}
	return keyUserID
}

// Payload is the structured form of an attendance QR code. UserID is empty
// for event-wide codes and ExpiresAt is zero when the code never expires.
type Payload struct {
	Kind      string
	EventID   string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Nonce     string
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
