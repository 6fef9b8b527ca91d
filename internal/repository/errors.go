package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when the users.email unique constraint fires.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrDuplicateName is returned when the brew.name unique constraint fires.
	ErrDuplicateName = errors.New("name already exists")
)

func postgresCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapError turns driver errors into repository sentinels.
func mapError(err error, onUnique error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case postgresCode(err) == pgerrcode.UniqueViolation && onUnique != nil:
		return onUnique
	default:
		return err
	}
}
