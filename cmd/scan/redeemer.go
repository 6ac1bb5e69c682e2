package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uep/eventcheckin/pkg/scanner"
)

// httpRedeemer posts scanned payloads to the gateway's /v1/scan.
type httpRedeemer struct {
	baseURL string
	token   string
	eventID string
	client  *http.Client
}

func newHTTPRedeemer(baseURL, token, eventID string) *httpRedeemer {
	return &httpRedeemer{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		eventID: eventID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type scanBody struct {
	Raw     string `json:"raw"`
	EventID string `json:"event_id,omitempty"`
}

type scanReply struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	EventName string `json:"event_name"`
	Error     string `json:"error"`
	Code      string `json:"code"`
}

// Redeem returns an error only when no answer came back. Every HTTP
// response, rejections included, becomes a Result.
func (h *httpRedeemer) Redeem(ctx context.Context, raw string) (scanner.Result, error) {
	body, err := json.Marshal(scanBody{Raw: raw, EventID: h.eventID})
	if err != nil {
		return scanner.Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v1/scan", bytes.NewReader(body))
	if err != nil {
		return scanner.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	// Fresh key per attempt; a repeat scan must reach the store.
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := h.client.Do(req)
	if err != nil {
		return scanner.Result{}, fmt.Errorf("scan request failed: %w", err)
	}
	defer resp.Body.Close()

	var reply scanReply
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&reply); err != nil {
		return scanner.Result{}, fmt.Errorf("unreadable response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := reply.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return scanner.Result{Outcome: scanner.Failure, Message: msg}, nil
	}

	switch reply.Status {
	case "attended":
		return scanner.Result{Outcome: scanner.Success, Message: reply.Message}, nil
	case "already_checked_in":
		return scanner.Result{Outcome: scanner.Info, Message: reply.Message}, nil
	default:
		return scanner.Result{Outcome: scanner.Failure, Message: reply.Message}, nil
	}
}
