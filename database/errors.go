package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsRetryable reports whether err is a transient Postgres failure that a
// fresh transaction can be expected to get past.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03", // lock_not_available
		"57P01": // admin_shutdown
		return true
	}
	// class 08: connection exceptions
	return len(pgErr.Code) == 5 && pgErr.Code[:2] == "08"
}

// IsUniqueViolation reports a unique constraint conflict.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
