package qrpayload

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingEventID = errors.New("event id is required")
	ErrInvalidTTL     = errors.New("ttl must be positive")
	ErrUnknownFormat  = errors.New("unknown payload format")
)

// IssueRequest describes a payload to mint. TTL is measured from the
// moment of issue.
type IssueRequest struct {
	EventID string
	UserID  string
	TTL     time.Duration
}

type Encoder struct {
	now      func() time.Time
	newNonce func() (string, error)
	seed     atomic.Uint64
}

type EncoderOption func(*Encoder)

func WithClock(now func() time.Time) EncoderOption {
	return func(e *Encoder) { e.now = now }
}

// WithNonceSource replaces the random nonce generator. When it fails the
// encoder falls back to a timestamp-and-counter nonce.
func WithNonceSource(f func() (string, error)) EncoderOption {
	return func(e *Encoder) { e.newNonce = f }
}

func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{
		now: time.Now,
		newNonce: func() (string, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Issue mints a payload with a fresh nonce. Every call yields a new nonce,
// so re-rendering a code always changes its content.
func (e *Encoder) Issue(req IssueRequest) (Payload, error) {
	eventID := strings.TrimSpace(req.EventID)
	if eventID == "" {
		return Payload{}, ErrMissingEventID
	}
	if req.TTL <= 0 {
		return Payload{}, ErrInvalidTTL
	}

	now := e.now().UTC().Truncate(time.Millisecond)
	return Payload{
		Kind:      Kind,
		EventID:   eventID,
		UserID:    strings.TrimSpace(req.UserID),
		IssuedAt:  now,
		ExpiresAt: now.Add(req.TTL),
		Nonce:     e.nonce(now),
	}, nil
}

// Encode is Issue followed by Marshal.
func (e *Encoder) Encode(req IssueRequest, format Format, dialect Dialect) (string, Payload, error) {
	p, err := e.Issue(req)
	if err != nil {
		return "", Payload{}, err
	}
	s, err := Marshal(p, format, dialect)
	if err != nil {
		return "", Payload{}, err
	}
	return s, p, nil
}

func (e *Encoder) nonce(now time.Time) string {
	if n, err := e.newNonce(); err == nil && n != "" {
		return n
	}
	return fmt.Sprintf("%d-%d", now.UnixMilli(), e.seed.Add(1))
}

type canonicalJSON struct {
	Type     string `json:"type"`
	EventID  string `json:"event_id"`
	UserID   string `json:"user_id,omitempty"`
	IssuedAt string `json:"issued_at,omitempty"`
	Exp      string `json:"exp,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
}

type legacyJSON struct {
	Type     string `json:"type"`
	EventID  string `json:"evento_id"`
	UserID   string `json:"usuario_id,omitempty"`
	IssuedAt string `json:"issued_at,omitempty"`
	Exp      string `json:"exp,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
}

// Marshal renders p in the requested wire format and dialect.
func Marshal(p Payload, format Format, dialect Dialect) (string, error) {
	if strings.TrimSpace(p.EventID) == "" {
		return "", ErrMissingEventID
	}
	kind := p.Kind
	if kind == "" {
		kind = Kind
	}

	switch format {
	case FormatJSON:
		var v any = canonicalJSON{
			Type:     kind,
			EventID:  p.EventID,
			UserID:   p.UserID,
			IssuedAt: formatTime(p.IssuedAt),
			Exp:      formatTime(p.ExpiresAt),
			Nonce:    p.Nonce,
		}
		if dialect == Legacy {
			v = legacyJSON(v.(canonicalJSON))
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal payload: %w", err)
		}
		return string(b), nil

	case FormatKV:
		pairs := make([]string, 0, 6)
		add := func(k, v string) {
			if v != "" {
				pairs = append(pairs, k+"="+url.QueryEscape(v))
			}
		}
		add(keyType, kind)
		add(dialect.eventKey(), p.EventID)
		add(dialect.userKey(), p.UserID)
		add(keyIssuedAt, formatTime(p.IssuedAt))
		add(keyExp, formatTime(p.ExpiresAt))
		add(keyNonce, p.Nonce)
		return strings.Join(pairs, ";"), nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
