package db

import (
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// pgUndefinedColumn is the SQLSTATE for "column does not exist".
const pgUndefinedColumn = "42703"

// IsUnknownColumn reports whether err means the statement referenced a
// column the target table does not have.
func IsUnknownColumn(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedColumn
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such column") || // sqlite select
		strings.Contains(msg, "has no column named") // sqlite insert
}

// IsMissingTable mirrors IsUnknownColumn for absent tables.
func IsMissingTable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such table")
}
