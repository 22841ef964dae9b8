// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// constraintViolated returns the name of the violated constraint if err is a postgres error with that code.
func constraintViolated(err error, code pq.ErrorCode) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == code {
		return pqErr.Constraint, true
	}
	return "", false
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// validID tells whether id may be looked up: uuid columns reject anything else.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// nonNilStrings keeps empty arrays as '{}' rather than NULL.
func nonNilStrings(ss []string) pq.StringArray {
	if ss == nil {
		return pq.StringArray{}
	}
	return ss
}
