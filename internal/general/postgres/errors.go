package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation   = "23505"
	codeForeignKey        = "23503"
	codeInvalidTextFormat = "22P02"
)

// noRow reports whether err means the addressed row does not exist.
// A malformed uuid cannot name a row either.
func noRow(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	return pgCode(err) == codeInvalidTextFormat
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
