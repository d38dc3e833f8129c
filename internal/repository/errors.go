// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// uniqueViolation reports whether err is a unique constraint violation and,
// when the driver exposes it, which constraint (or table.column) tripped.
func uniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName, pgErr.Code == pgUniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}

	// SQLite: "UNIQUE constraint failed: users.email"
	msg := strings.ToLower(err.Error())
	const sqlitePrefix = "unique constraint failed: "
	if i := strings.Index(msg, sqlitePrefix); i >= 0 {
		return strings.TrimSpace(msg[i+len(sqlitePrefix):]), true
	}
	return "", strings.Contains(msg, "duplicate key")
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	_, ok := uniqueViolation(err)
	return ok
}

// violatedColumn guesses which of columns a unique violation refers to.
func violatedColumn(err error, columns ...string) string {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return ""
	}
	for _, col := range columns {
		if strings.Contains(constraint, col) {
			return col
		}
	}
	return ""
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
