package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uep/eventcheckin/pkg/auth"
	"github.com/uep/eventcheckin/pkg/config"
	"github.com/uep/eventcheckin/pkg/events"
	"github.com/uep/eventcheckin/pkg/logger"
	"github.com/uep/eventcheckin/pkg/qrpayload"
	"github.com/uep/eventcheckin/services/events/internal/domain"
	"github.com/uep/eventcheckin/services/events/internal/repository"
)

var (
	ErrNotRegistered    = errors.New("you are not registered for this event")
	ErrStoreUnavailable = errors.New("could not reach the database")
	ErrTTLTooLong       = errors.New("ttl exceeds the configured maximum")
	ErrInvalidFormat    = errors.New("unknown QR format")
	ErrInvalidDialect   = errors.New("unknown QR dialect")
)

// Scan outcomes as counted by ScanObserver.
const (
	OutcomeAttended      = "attended"
	OutcomeAlreadyDone   = "already_checked_in"
	OutcomeRejected      = "rejected"
	OutcomeNotRegistered = "not_registered"
	OutcomeStoreError    = "store_error"
)

type ScanObserver interface {
	ObserveScan(outcome string)
}

type AttendanceService interface {
	IssueQR(ctx context.Context, actor domain.Actor, eventID string, req domain.IssueQRRequest) (*domain.QRResponse, error)
	Redeem(ctx context.Context, actor domain.Actor, req *domain.ScanRequest) (*domain.ScanResult, error)
	Summary(ctx context.Context, eventID string) (*domain.AttendanceSummary, error)
}

type attendanceService struct {
	eventRepo        repository.EventRepository
	registrationRepo repository.RegistrationRepository
	checkInRepo      repository.CheckInRepository
	publisher        events.Publisher
	encoder          *qrpayload.Encoder
	validator        *qrpayload.Validator
	observer         ScanObserver
	config           *config.Config
	now              func() time.Time
}

// NewAttendanceService wires the redemption flow. observer may be nil.
func NewAttendanceService(
	eventRepo repository.EventRepository,
	registrationRepo repository.RegistrationRepository,
	checkInRepo repository.CheckInRepository,
	publisher events.Publisher,
	encoder *qrpayload.Encoder,
	validator *qrpayload.Validator,
	observer ScanObserver,
	config *config.Config,
) AttendanceService {
	return &attendanceService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		checkInRepo:      checkInRepo,
		publisher:        publisher,
		encoder:          encoder,
		validator:        validator,
		observer:         observer,
		config:           config,
		now:              time.Now,
	}
}

// IssueQR mints a payload for an event. Organizers may issue codes for any
// student or an event-wide code; students only for themselves.
func (s *attendanceService) IssueQR(ctx context.Context, actor domain.Actor, eventID string, req domain.IssueQRRequest) (*domain.QRResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	userID := strings.TrimSpace(req.UserID)
	if actor.Role == auth.RoleStudent {
		if userID == "" {
			userID = actor.UserID
		}
		if userID != actor.UserID {
			return nil, ErrForbidden
		}
	} else if err := authorizeOrganizer(ctx, s.eventRepo, actor, event.ID); err != nil {
		return nil, err
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = s.config.QR.DefaultTTL
		if userID != "" {
			ttl = s.config.QR.FixedTTL
		}
	}
	if ttl > s.config.QR.MaxTTL {
		return nil, ErrTTLTooLong
	}

	formatName := req.Format
	if formatName == "" {
		formatName = s.config.QR.Format
	}
	format, ok := qrpayload.ParseFormat(formatName)
	if !ok {
		return nil, ErrInvalidFormat
	}
	dialectName := req.Dialect
	if dialectName == "" {
		dialectName = s.config.QR.Dialect
	}
	dialect, ok := qrpayload.ParseDialect(dialectName)
	if !ok {
		return nil, ErrInvalidDialect
	}

	raw, p, err := s.encoder.Encode(qrpayload.IssueRequest{EventID: event.ID, UserID: userID, TTL: ttl}, format, dialect)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "QR issued", "event_id", event.ID, "user_id", userID, "ttl", ttl.String(), "format", string(format))

	return &domain.QRResponse{
		Payload:   raw,
		Format:    string(format),
		EventID:   p.EventID,
		UserID:    p.UserID,
		IssuedAt:  p.IssuedAt,
		ExpiresAt: p.ExpiresAt,
		Nonce:     p.Nonce,
	}, nil
}

// Redeem validates a scanned payload and, only if every check passes,
// performs exactly one attendance mutation. Students redeem their own
// codes; organizers redeem codes for events they run.
func (s *attendanceService) Redeem(ctx context.Context, actor domain.Actor, req *domain.ScanRequest) (*domain.ScanResult, error) {
	sc := qrpayload.ScanContext{EventID: req.EventID}
	if actor.Role == auth.RoleStudent {
		sc.UserID = actor.UserID
	}

	claim, err := s.validator.Check(req.Raw, sc)
	if err != nil {
		s.reject(ctx, sc, err)
		return nil, err
	}
	ctx = context.WithValue(ctx, logger.EventIDKey, claim.EventID)

	if actor.Role != auth.RoleStudent {
		if err := authorizeOrganizer(ctx, s.eventRepo, actor, claim.EventID); err != nil {
			s.observe(OutcomeRejected)
			return nil, err
		}
	}

	var result *domain.ScanResult
	if s.config.Attendance.Mode == config.ModeCheckin {
		result, err = s.insertCheckIn(ctx, claim)
	} else {
		result, err = s.markAttended(ctx, claim)
	}
	switch {
	case errors.Is(err, ErrNotRegistered):
		s.reject(ctx, qrpayload.ScanContext{UserID: claim.UserID, EventID: claim.EventID}, err)
		return nil, err
	case err != nil:
		s.observe(OutcomeStoreError)
		logger.ErrorContext(ctx, "Attendance store call failed", logger.Err(err), "user_id", claim.UserID)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	s.observe(string(result.Status))
	if result.Status == domain.ScanAttended {
		evt := events.AttendanceRecordedEvent{
			EventID:    result.EventID,
			EventName:  result.EventName,
			UserID:     result.UserID,
			Mode:       s.mode(),
			Nonce:      claim.Nonce,
			RecordedAt: result.RecordedAt,
		}
		if actor.UserID == claim.UserID {
			evt.UserEmail = actor.Email
		}
		if err := s.publisher.Publish(ctx, events.AttendanceRecorded, evt); err != nil {
			logger.ErrorContext(ctx, "Failed to publish attendance recorded event", logger.Err(err))
		}
	}
	logger.InfoContext(ctx, "QR redeemed", "user_id", claim.UserID, "status", string(result.Status))
	return result, nil
}

// markAttended moves the registration to ATTENDED. When nothing changed the
// registration is read back to tell "not registered" from "already done".
func (s *attendanceService) markAttended(ctx context.Context, claim qrpayload.Claim) (*domain.ScanResult, error) {
	reg, err := s.registrationRepo.MarkAttended(ctx, claim.EventID, claim.UserID)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		return &domain.ScanResult{
			Status:     domain.ScanAttended,
			Message:    "Attendance recorded.",
			EventID:    reg.EventID,
			EventName:  reg.EventName,
			UserID:     reg.UserID,
			RecordedAt: s.attendedAt(reg),
		}, nil
	}

	existing, err := s.registrationRepo.Get(ctx, claim.EventID, claim.UserID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotRegistered
	}
	return &domain.ScanResult{
		Status:     domain.ScanAlreadyCheckedIn,
		Message:    "Attendance was already recorded.",
		EventID:    existing.EventID,
		EventName:  existing.EventName,
		UserID:     existing.UserID,
		RecordedAt: s.attendedAt(existing),
	}, nil
}

func (s *attendanceService) insertCheckIn(ctx context.Context, claim qrpayload.Claim) (*domain.ScanResult, error) {
	c, err := s.checkInRepo.Create(ctx, claim.EventID, claim.UserID, s.config.Attendance.Source)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return &domain.ScanResult{
			Status:     domain.ScanAlreadyCheckedIn,
			Message:    "Attendance was already recorded.",
			EventID:    claim.EventID,
			UserID:     claim.UserID,
			RecordedAt: s.now().UTC(),
		}, nil
	case errors.Is(err, repository.ErrUnknownReference):
		return nil, ErrNotRegistered
	case err != nil:
		return nil, err
	}
	return &domain.ScanResult{
		Status:     domain.ScanAttended,
		Message:    "Attendance recorded.",
		EventID:    c.EventID,
		EventName:  c.EventName,
		UserID:     c.UserID,
		RecordedAt: c.CheckinTime,
	}, nil
}

func (s *attendanceService) Summary(ctx context.Context, eventID string) (*domain.AttendanceSummary, error) {
	var (
		counts map[string]int
		err    error
	)
	if s.config.Attendance.Mode == config.ModeCheckin {
		counts, err = s.checkInRepo.CountByStatus(ctx, eventID)
	} else {
		counts, err = s.registrationRepo.CountByStatus(ctx, eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to count attendance: %w", err)
	}

	summary := &domain.AttendanceSummary{EventID: eventID, Counts: counts}
	for _, n := range counts {
		summary.Total += n
	}
	return summary, nil
}

func (s *attendanceService) reject(ctx context.Context, sc qrpayload.ScanContext, err error) {
	outcome := OutcomeRejected
	if errors.Is(err, ErrNotRegistered) {
		outcome = OutcomeNotRegistered
	}
	s.observe(outcome)
	logger.WarnContext(ctx, "QR rejected", "reason", Reason(err), logger.Err(err))

	evt := events.AttendanceRejectedEvent{
		EventID:    sc.EventID,
		UserID:     sc.UserID,
		Reason:     Reason(err),
		RejectedAt: s.now().UTC(),
	}
	if perr := s.publisher.Publish(ctx, events.AttendanceRejected, evt); perr != nil {
		logger.ErrorContext(ctx, "Failed to publish attendance rejected event", logger.Err(perr))
	}
}

func (s *attendanceService) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObserveScan(outcome)
	}
}

func (s *attendanceService) mode() string {
	if s.config.Attendance.Mode == config.ModeCheckin {
		return config.ModeCheckin
	}
	return config.ModeRegistration
}

func (s *attendanceService) attendedAt(reg *domain.Registration) time.Time {
	if reg.AttendedAt != nil {
		return *reg.AttendedAt
	}
	return s.now().UTC()
}

// Reason maps a redemption error to a stable machine-readable code.
func Reason(err error) string {
	switch {
	case errors.Is(err, qrpayload.ErrUnrecognized):
		return "QR_UNRECOGNIZED"
	case errors.Is(err, qrpayload.ErrIncomplete):
		return "QR_INCOMPLETE"
	case errors.Is(err, qrpayload.ErrInvalidIdentifiers):
		return "QR_INVALID_IDS"
	case errors.Is(err, qrpayload.ErrWrongUser):
		return "QR_WRONG_USER"
	case errors.Is(err, qrpayload.ErrWrongEvent):
		return "QR_WRONG_EVENT"
	case errors.Is(err, qrpayload.ErrExpired):
		return "QR_EXPIRED"
	case errors.Is(err, ErrNotRegistered):
		return "NOT_REGISTERED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrStoreUnavailable):
		return "STORE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
