package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether the provided error is a unique constraint
// violation. When constraintName is provided the match is narrowed to that
// constraint, so racing writers on different constraints are not conflated.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		if pgxErr.Code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pgxErr.ConstraintName == constraintName
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pqErr.Constraint == constraintName
	}

	// SQLite (dev flag) reports constraint failures as plain text.
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
