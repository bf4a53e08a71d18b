package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Domain-level database error sentinels.
var (
	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrDuplicateSRN = errors.New("SRN already registered")

	// Subject errors
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrDuplicateSubject = errors.New("subject name or code already exists")
	ErrDocumentNotFound = errors.New("document not found")

	// Query errors
	ErrQueryNotFound           = errors.New("query not found")
	ErrInvalidStatusTransition = errors.New("query status cannot move backwards")
)

// isUniqueViolation reports whether err is a Postgres unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isForeignKeyViolation reports whether err is a Postgres foreign key violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
