package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uep/eventcheckin/pkg/scanner"
)

type captured struct {
	path, auth, key string
	body            scanBody
}

func gateway(t *testing.T, status int, reply string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body scanBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		*got = captured{
			path: r.URL.Path,
			auth: r.Header.Get("Authorization"),
			key:  r.Header.Get("Idempotency-Key"),
			body: body,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRedeem_Attended(t *testing.T) {
	var got captured
	srv := gateway(t, http.StatusOK, `{"status":"attended","message":"Attendance recorded."}`, &got)

	res, err := newHTTPRedeemer(srv.URL+"/", "tok", "E1").Redeem(context.Background(), `{"event_id":"E1"}`)
	require.NoError(t, err)

	assert.Equal(t, scanner.Result{Outcome: scanner.Success, Message: "Attendance recorded."}, res)
	assert.Equal(t, "/v1/scan", got.path)
	assert.Equal(t, "Bearer tok", got.auth)
	assert.NotEmpty(t, got.key)
	assert.Equal(t, scanBody{Raw: `{"event_id":"E1"}`, EventID: "E1"}, got.body)
}

func TestRedeem_AlreadyCheckedInIsInfo(t *testing.T) {
	var got captured
	srv := gateway(t, http.StatusOK, `{"status":"already_checked_in","message":"Already checked in."}`, &got)

	res, err := newHTTPRedeemer(srv.URL, "tok", "").Redeem(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, scanner.Info, res.Outcome)
}

func TestRedeem_RejectionIsFailureResult(t *testing.T) {
	var got captured
	srv := gateway(t, http.StatusUnprocessableEntity, `{"error":"This code has expired.","code":"expired"}`, &got)

	res, err := newHTTPRedeemer(srv.URL, "tok", "").Redeem(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, scanner.Result{Outcome: scanner.Failure, Message: "This code has expired."}, res)
}

func TestRedeem_FreshIdempotencyKeyPerAttempt(t *testing.T) {
	var got captured
	srv := gateway(t, http.StatusOK, `{"status":"attended"}`, &got)
	r := newHTTPRedeemer(srv.URL, "", "")

	_, err := r.Redeem(context.Background(), "payload-a")
	require.NoError(t, err)
	first := got.key
	assert.NotEmpty(t, first)
	assert.Empty(t, got.auth)

	_, err = r.Redeem(context.Background(), "payload-a")
	require.NoError(t, err)
	assert.NotEmpty(t, got.key)
	assert.NotEqual(t, first, got.key)
}

func TestRedeem_Unreachable(t *testing.T) {
	_, err := newHTTPRedeemer("http://127.0.0.1:1", "", "").Redeem(context.Background(), "x")
	assert.ErrorContains(t, err, "scan request failed")
}

type recordingRedeemer struct {
	mu   sync.Mutex
	seen []string
}

func (r *recordingRedeemer) Redeem(_ context.Context, raw string) (scanner.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, raw)
	return scanner.Result{Outcome: scanner.Success, Message: "ok " + raw}, nil
}

func TestFeed_RedeemsEveryDistinctLine(t *testing.T) {
	rec := &recordingRedeemer{}
	var out bytes.Buffer
	var outMu sync.Mutex
	s := scanner.New(rec,
		scanner.WithPauses(0, 0),
		scanner.WithStatus(func(st scanner.Status) {
			outMu.Lock()
			defer outMu.Unlock()
			printStatus(&out)(st)
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	feed(ctx, s, strings.NewReader("a\na\n\nb\n"))
	cancel()
	<-done

	rec.mu.Lock()
	assert.Equal(t, []string{"a", "b"}, rec.seen)
	rec.mu.Unlock()

	outMu.Lock()
	assert.Contains(t, out.String(), "success: ok a\n")
	assert.Contains(t, out.String(), "success: ok b\n")
	outMu.Unlock()
}
