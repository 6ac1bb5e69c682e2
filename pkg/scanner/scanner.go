// Package scanner runs the scan-side loop: it takes decoded QR strings from a
// capture source, redeems at most one at a time and pauses between attempts.
package scanner

import (
	"context"
	"strings"
	"time"
)

const (
	DefaultSuccessPause = 1800 * time.Millisecond
	DefaultFailurePause = 2200 * time.Millisecond
)

type Outcome int

const (
	Success Outcome = iota
	// Info is a non-error result that needs no action, e.g. a repeat check-in.
	Info
	Failure
)

type Result struct {
	Outcome Outcome
	Message string
}

// Redeemer performs the actual redemption. A returned error means the
// attempt could not be completed at all; business rejections are reported
// through Result with Outcome Failure.
type Redeemer interface {
	Redeem(ctx context.Context, raw string) (Result, error)
}

type State string

const (
	StateReady      State = "ready"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateInfo       State = "info"
	StateError      State = "error"
)

type Status struct {
	State   State
	Message string
	Raw     string
}

type Scanner struct {
	redeemer     Redeemer
	frames       chan string
	onStatus     func(Status)
	errorText    func(error) string
	successPause time.Duration
	failurePause time.Duration
	sleep        func(ctx context.Context, d time.Duration)

	// owned by Run
	last string
}

type Option func(*Scanner)

func WithPauses(success, failure time.Duration) Option {
	return func(s *Scanner) {
		s.successPause = success
		s.failurePause = failure
	}
}

func WithStatus(fn func(Status)) Option {
	return func(s *Scanner) { s.onStatus = fn }
}

// WithErrorText controls the message shown when the redeemer fails outright.
func WithErrorText(fn func(error) string) Option {
	return func(s *Scanner) { s.errorText = fn }
}

func New(r Redeemer, opts ...Option) *Scanner {
	s := &Scanner{
		redeemer:     r,
		frames:       make(chan string),
		onStatus:     func(Status) {},
		errorText:    func(err error) string { return err.Error() },
		successPause: DefaultSuccessPause,
		failurePause: DefaultFailurePause,
		sleep:        sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Offer hands a decoded string to the loop without blocking. It reports
// false when the loop is busy redeeming or cooling down; the value is
// dropped, not queued.
func (s *Scanner) Offer(raw string) bool {
	select {
	case s.frames <- raw:
		return true
	default:
		return false
	}
}

// Run consumes offered values until ctx is done. Only one Run may be active
// per Scanner.
func (s *Scanner) Run(ctx context.Context) error {
	s.onStatus(Status{State: StateReady})
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw := <-s.frames:
			s.handle(ctx, raw)
		}
	}
}

func (s *Scanner) handle(ctx context.Context, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == s.last {
		return
	}
	s.last = raw

	s.onStatus(Status{State: StateProcessing, Raw: raw})

	res, err := s.redeemer.Redeem(ctx, raw)
	st := Status{Raw: raw, Message: res.Message}
	pause := s.failurePause
	switch {
	case err != nil:
		st.State, st.Message = StateError, s.errorText(err)
	case res.Outcome == Success:
		st.State, pause = StateSuccess, s.successPause
	case res.Outcome == Info:
		st.State, pause = StateInfo, s.successPause
	default:
		st.State = StateError
	}
	s.onStatus(st)

	s.sleep(ctx, pause)
	if ctx.Err() == nil {
		s.onStatus(Status{State: StateReady})
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
