package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeLockNotAvailable = "55P03"
	codeQueryCanceled    = "57014"
	codeUniqueViolation  = "23505"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isLockTimeout reports whether err came from lock_timeout or statement_timeout
// expiring while waiting for a row lock.
func isLockTimeout(err error) bool {
	code := pgCode(err)
	return code == codeLockNotAvailable || code == codeQueryCanceled
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}
