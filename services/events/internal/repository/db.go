package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryTimeout bounds every single statement.
const queryTimeout = 3 * time.Second

var (
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrUnknownReference reports an id that does not name an existing row.
	ErrUnknownReference = errors.New("unknown event or user")
)

// DBTX is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	invalidTextValue    = "22P02"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == uniqueViolation
}

// isUnknownReference is true for ids that cannot match a row: a dangling
// foreign key or text that is not a valid uuid.
func isUnknownReference(err error) bool {
	switch pgCode(err) {
	case foreignKeyViolation, invalidTextValue:
		return true
	}
	return false
}
