package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/uep/eventcheckin/services/events/internal/domain"
)

type EventRepository interface {
	Create(ctx context.Context, creatorID string, req *domain.CreateEventRequest) (*domain.Event, error)
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
	ListForOrganizer(ctx context.Context, userID string) ([]domain.Event, error)
	IsOrganizer(ctx context.Context, eventID, userID string) (bool, error)
	AddOrganizer(ctx context.Context, eventID, userID string) error
	ListBusinessModels(ctx context.Context) ([]domain.Lookup, error)
}

type eventRepository struct {
	db DBTX
}

func NewEventRepository(db DBTX) EventRepository {
	return &eventRepository{db: db}
}

const eventSelect = `SELECT e.id, e.name, e.description, e.event_date, e.attendee_limit,
	e.faculty_id, f.name, e.business_model_id, bm.name, e.creator_id, e.created_at
FROM events e
LEFT JOIN faculties f ON f.id = e.faculty_id
LEFT JOIN business_models bm ON bm.id = e.business_model_id`

func scanEvent(row pgx.Row, e *domain.Event) error {
	return row.Scan(
		&e.ID, &e.Name, &e.Description, &e.EventDate, &e.AttendeeLimit,
		&e.FacultyID, &e.FacultyName, &e.BusinessModelID, &e.BusinessModelName,
		&e.CreatorID, &e.CreatedAt,
	)
}

func (r *eventRepository) Create(ctx context.Context, creatorID string, req *domain.CreateEventRequest) (*domain.Event, error) {
	const q = `WITH ins AS (
		INSERT INTO events (name, description, event_date, attendee_limit, faculty_id, business_model_id, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	)
	SELECT e.id, e.name, e.description, e.event_date, e.attendee_limit,
		e.faculty_id, f.name, e.business_model_id, bm.name, e.creator_id, e.created_at
	FROM ins e
	LEFT JOIN faculties f ON f.id = e.faculty_id
	LEFT JOIN business_models bm ON bm.id = e.business_model_id`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var e domain.Event
	err := scanEvent(r.db.QueryRow(ctx, q,
		req.Name, req.Description, req.EventDate, req.AttendeeLimit,
		req.FacultyID, req.BusinessModelID, creatorID,
	), &e)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &e, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	const q = eventSelect + ` WHERE e.id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var e domain.Event
	err := scanEvent(r.db.QueryRow(ctx, q, id), &e)
	if errors.Is(err, pgx.ErrNoRows) || isUnknownReference(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var (
		where []string
		args  []any
	)
	if filter.FacultyID != nil {
		args = append(args, *filter.FacultyID)
		where = append(where, fmt.Sprintf("e.faculty_id = $%d", len(args)))
	}
	if filter.BusinessModelID != nil {
		args = append(args, *filter.BusinessModelID)
		where = append(where, fmt.Sprintf("e.business_model_id = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("e.name ILIKE $%d", len(args)))
	}

	q := eventSelect
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	q += fmt.Sprintf(` ORDER BY e.event_date DESC NULLS LAST, e.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return r.queryEvents(ctx, q, args...)
}

// ListForOrganizer returns events the user created or was enrolled in.
func (r *eventRepository) ListForOrganizer(ctx context.Context, userID string) ([]domain.Event, error) {
	const q = eventSelect + `
	WHERE e.creator_id = $1
	   OR EXISTS (SELECT 1 FROM event_organizers eo WHERE eo.event_id = e.id AND eo.user_id = $1)
	ORDER BY e.event_date DESC NULLS LAST, e.created_at DESC`

	return r.queryEvents(ctx, q, userID)
}

func (r *eventRepository) queryEvents(ctx context.Context, q string, args ...any) ([]domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) IsOrganizer(ctx context.Context, eventID, userID string) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM events WHERE id = $1 AND creator_id = $2
		UNION ALL
		SELECT 1 FROM event_organizers WHERE event_id = $1 AND user_id = $2
	)`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var ok bool
	if err := r.db.QueryRow(ctx, q, eventID, userID).Scan(&ok); err != nil {
		if isUnknownReference(err) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

func (r *eventRepository) AddOrganizer(ctx context.Context, eventID, userID string) error {
	const q = `INSERT INTO event_organizers (event_id, user_id) VALUES ($1, $2)`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.db.Exec(ctx, q, eventID, userID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if isUnknownReference(err) {
			return ErrUnknownReference
		}
		return err
	}
	return nil
}

func (r *eventRepository) ListBusinessModels(ctx context.Context) ([]domain.Lookup, error) {
	const q = `SELECT id, name FROM business_models ORDER BY name`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Lookup
	for rows.Next() {
		var l domain.Lookup
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
