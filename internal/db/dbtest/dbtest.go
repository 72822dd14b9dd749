// Package dbtest opens throwaway in-memory SQLite databases with the full
// schema applied.
package dbtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-norms/internal/db"
)

// Open returns a fresh database closed at test cleanup.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Exec runs a statement and fails the test on error.
func Exec(t *testing.T, conn *sql.DB, query string, args ...any) sql.Result {
	t.Helper()
	res, err := conn.Exec(query, args...)
	require.NoError(t, err, query)
	return res
}

// Insert runs an INSERT and returns the new row id.
func Insert(t *testing.T, conn *sql.DB, query string, args ...any) int64 {
	t.Helper()
	id, err := Exec(t, conn, query, args...).LastInsertId()
	require.NoError(t, err)
	return id
}

// Table seeds an active normative table.
func Table(t *testing.T, conn *sql.DB, testType, name, region string) int64 {
	t.Helper()
	return Insert(t, conn, `INSERT INTO normative_tables (test_type, name, region, active) VALUES ($1,$2,$3,1)`,
		testType, name, region)
}

// Row seeds a range row with a percentile and classification.
func Row(t *testing.T, conn *sql.DB, tableID int64, lo, hi float64, percentile int, class string) int64 {
	t.Helper()
	return Insert(t, conn, `INSERT INTO normative_rows (table_id, min_score, max_score, percentile, classification)
		VALUES ($1,$2,$3,$4,$5)`, tableID, lo, hi, percentile, class)
}

// Examinee seeds an examinee.
func Examinee(t *testing.T, conn *sql.DB, name string) int64 {
	t.Helper()
	return Insert(t, conn, `INSERT INTO examinees (full_name, created_at) VALUES ($1,$2)`, name, time.Now().Unix())
}

// User seeds a user with the given role and no password.
func User(t *testing.T, conn *sql.DB, username, role string) int64 {
	t.Helper()
	return Insert(t, conn, `INSERT INTO users (username, role) VALUES ($1,$2)`, username, role)
}

// StockItem seeds a stock item.
func StockItem(t *testing.T, conn *sql.DB, name string, qty int) int64 {
	t.Helper()
	return Insert(t, conn, `INSERT INTO stock_items (name, quantity, updated_at) VALUES ($1,$2,$3)`, name, qty, time.Now().Unix())
}
