package norms

import (
	"context"

	"github.com/pkg/errors"
)

// ErrTableNotFound is returned when a table id or name pattern resolves to nothing.
var ErrTableNotFound = errors.New("normative table not found")

// Repository is read-only access to normative tables and rows.
type Repository interface {
	ListActiveTables(ctx context.Context, testType TestType) ([]NormativeTable, error)
	ListRows(ctx context.Context, tableID int64, f RowFilter) ([]NormativeRow, error)
	GetTable(ctx context.Context, tableID int64) (NormativeTable, error)
	GetTableName(ctx context.Context, tableID int64) (string, error)
	// FindTableByName returns the first table (any test type, active or not)
	// whose normalized name contains one of the patterns, tried in order.
	FindTableByName(ctx context.Context, patterns ...string) (NormativeTable, error)
}

// LookupBest runs f against tableID and returns the best matching row.
func LookupBest(ctx context.Context, repo Repository, tableID int64, f RowFilter) (NormativeRow, bool, error) {
	rows, err := repo.ListRows(ctx, tableID, f)
	if err != nil {
		return NormativeRow{}, false, err
	}
	row, ok := BestRow(rows)
	return row, ok, nil
}
