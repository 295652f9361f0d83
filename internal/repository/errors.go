// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation reports whether err is a unique-constraint violation,
// optionally scoped to a constraint or column name fragment.
func isUniqueViolation(err error, fragment string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL unique violation SQLSTATE 23505
		if pgErr.Code != "23505" {
			return false
		}
		if fragment == "" {
			return true
		}
		return strings.Contains(pgErr.ConstraintName, fragment) ||
			strings.Contains(pgErr.Detail, fragment)
	}

	// Fallback for drivers without SQLSTATE, e.g. sqlite in tests.
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique") && !strings.Contains(msg, "duplicate key") {
		return false
	}
	return fragment == "" || strings.Contains(msg, strings.ToLower(fragment))
}

// isTransient reports lock/busy/serialization failures the caller may retry.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
