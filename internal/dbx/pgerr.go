package dbx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// UniqueViolation is the SQLSTATE raised for a duplicate key.
const UniqueViolation = "23505"

// IsUniqueViolation reports whether err wraps a postgres unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == UniqueViolation
}
