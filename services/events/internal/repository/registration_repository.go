package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/uep/eventcheckin/services/events/internal/domain"
)

// ErrEventFull is returned when an event reached its attendee limit.
var ErrEventFull = errors.New("event is full")

type RegistrationRepository interface {
	Register(ctx context.Context, eventID, userID string) (*domain.Registration, error)
	Get(ctx context.Context, eventID, userID string) (*domain.Registration, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Registration, error)
	MarkAttended(ctx context.Context, eventID, userID string) (*domain.Registration, error)
	CountByStatus(ctx context.Context, eventID string) (map[string]int, error)
}

type registrationRepository struct {
	db DBTX
}

func NewRegistrationRepository(db DBTX) RegistrationRepository {
	return &registrationRepository{db: db}
}

// Register inserts a REGISTERED row unless the event is at capacity. The
// capacity check and insert run as one statement.
func (r *registrationRepository) Register(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	const q = `WITH ev AS (
		SELECT id, name, event_date, attendee_limit FROM events WHERE id = $1
	), ins AS (
		INSERT INTO registrations (event_id, user_id)
		SELECT ev.id, $2 FROM ev
		WHERE ev.attendee_limit IS NULL
		   OR (SELECT count(*) FROM registrations WHERE event_id = ev.id) < ev.attendee_limit
		RETURNING event_id, user_id, status, registered_at, attended_at
	)
	SELECT ins.event_id, ins.user_id, ins.status, ins.registered_at, ins.attended_at, ev.name, ev.event_date
	FROM ins JOIN ev ON ev.id = ins.event_id`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var reg domain.Registration
	err := r.db.QueryRow(ctx, q, eventID, userID).Scan(
		&reg.EventID, &reg.UserID, &reg.Status, &reg.RegisteredAt, &reg.AttendedAt,
		&reg.EventName, &reg.EventDate,
	)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrEventFull
	case isUniqueViolation(err):
		return nil, ErrDuplicate
	case isUnknownReference(err):
		return nil, ErrUnknownReference
	case err != nil:
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) Get(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	const q = `SELECT r.event_id, r.user_id, r.status, r.registered_at, r.attended_at, e.name, e.event_date
	FROM registrations r JOIN events e ON e.id = r.event_id
	WHERE r.event_id = $1 AND r.user_id = $2`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var reg domain.Registration
	err := r.db.QueryRow(ctx, q, eventID, userID).Scan(
		&reg.EventID, &reg.UserID, &reg.Status, &reg.RegisteredAt, &reg.AttendedAt,
		&reg.EventName, &reg.EventDate,
	)
	if errors.Is(err, pgx.ErrNoRows) || isUnknownReference(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Registration, error) {
	const q = `SELECT r.event_id, r.user_id, r.status, r.registered_at, r.attended_at, e.name, e.event_date
	FROM registrations r JOIN events e ON e.id = r.event_id
	WHERE r.user_id = $1
	ORDER BY e.event_date DESC NULLS LAST, r.registered_at DESC`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Registration
	for rows.Next() {
		var reg domain.Registration
		if err := rows.Scan(
			&reg.EventID, &reg.UserID, &reg.Status, &reg.RegisteredAt, &reg.AttendedAt,
			&reg.EventName, &reg.EventDate,
		); err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// MarkAttended moves a REGISTERED row to ATTENDED. It returns nil, nil when
// no row changed: either there is no registration or it was already
// attended.
func (r *registrationRepository) MarkAttended(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	const q = `UPDATE registrations r
	SET status = 'ATTENDED', attended_at = now()
	FROM events e
	WHERE e.id = r.event_id AND r.event_id = $1 AND r.user_id = $2 AND r.status <> 'ATTENDED'
	RETURNING r.event_id, r.user_id, r.status, r.registered_at, r.attended_at, e.name, e.event_date`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var reg domain.Registration
	err := r.db.QueryRow(ctx, q, eventID, userID).Scan(
		&reg.EventID, &reg.UserID, &reg.Status, &reg.RegisteredAt, &reg.AttendedAt,
		&reg.EventName, &reg.EventDate,
	)
	if errors.Is(err, pgx.ErrNoRows) || isUnknownReference(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// CountByStatus groups registrations by status, for one event or for all
// events when eventID is empty.
func (r *registrationRepository) CountByStatus(ctx context.Context, eventID string) (map[string]int, error) {
	q := `SELECT status, count(*) FROM registrations`
	var args []any
	if eventID != "" {
		q += ` WHERE event_id = $1`
		args = append(args, eventID)
	}
	q += ` GROUP BY status`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
