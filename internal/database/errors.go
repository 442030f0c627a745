package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/example/revtrack/pkg/models"
)

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = pq.ErrorCode("23505")

// isUniqueViolation reports whether err is a primary key or unique
// constraint failure from either supported driver
func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	return false
}

// wrapErr maps driver errors onto the shared sentinels
func wrapErr(err error, format string, args ...any) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = models.ErrNotFound
	case isUniqueViolation(err):
		err = fmt.Errorf("%w: %v", models.ErrAlreadyExists, err)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
