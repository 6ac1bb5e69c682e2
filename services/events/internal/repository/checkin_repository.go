package repository

import (
	"context"

	"github.com/uep/eventcheckin/services/events/internal/domain"
)

type CheckInRepository interface {
	Create(ctx context.Context, eventID, userID, source string) (*domain.CheckIn, error)
	CountByStatus(ctx context.Context, eventID string) (map[string]int, error)
}

type checkInRepository struct {
	db DBTX
}

func NewCheckInRepository(db DBTX) CheckInRepository {
	return &checkInRepository{db: db}
}

// Create inserts a present/valid QR check-in. A second check-in for the same
// event and user returns ErrDuplicate; ids that match no row return
// ErrUnknownReference.
func (r *checkInRepository) Create(ctx context.Context, eventID, userID, source string) (*domain.CheckIn, error) {
	const q = `WITH ins AS (
		INSERT INTO checkins (event_id, user_id, checkin_time, method, status, valid, source)
		VALUES ($1, $2, now(), $3, $4, true, $5)
		RETURNING id, event_id, user_id, checkin_time, method, status, valid, source
	)
	SELECT ins.id, ins.event_id, ins.user_id, ins.checkin_time, ins.method, ins.status, ins.valid, ins.source, e.name
	FROM ins JOIN events e ON e.id = ins.event_id`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c domain.CheckIn
	err := r.db.QueryRow(ctx, q, eventID, userID, domain.CheckinMethodQR, domain.CheckinStatusPresent, source).Scan(
		&c.ID, &c.EventID, &c.UserID, &c.CheckinTime, &c.Method, &c.Status, &c.Valid, &c.Source, &c.EventName,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if isUnknownReference(err) {
		return nil, ErrUnknownReference
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *checkInRepository) CountByStatus(ctx context.Context, eventID string) (map[string]int, error) {
	q := `SELECT status, count(*) FROM checkins`
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
