package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SQLSTATE classes the fee schema relies on.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsDuplicateKeyErr reports a unique index violation, e.g. a second fee for the
// same (student, billing period) or a reused login id.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if pgCode(err) == pgUniqueViolation {
		return true
	}
	return containsAny(err.Error(),
		"duplicate key value violates unique constraint",
		"Error 1062",
		"UNIQUE constraint failed",
	)
}

// IsForeignKeyErr reports a referential violation: inserting against a deleted
// student, or deleting a year or period that rows still point at.
func IsForeignKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	if pgCode(err) == pgForeignKeyViolation {
		return true
	}
	return containsAny(err.Error(),
		"violates foreign key constraint",
		"Error 1451",
		"Error 1452",
		"FOREIGN KEY constraint failed",
	)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func containsAny(msg string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
