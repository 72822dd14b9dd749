package norms

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mind-engage/mindengage-norms/internal/db"
	"github.com/pkg/errors"
)

type SQLRepository struct {
	db db.Querier
}

func NewSQLRepository(q db.Querier) *SQLRepository {
	return &SQLRepository{db: q}
}

const tableCols = `id, test_type, name, criterion, region, active`

func scanTable(sc interface{ Scan(...any) error }) (NormativeTable, error) {
	var t NormativeTable
	var tt string
	if err := sc.Scan(&t.ID, &tt, &t.Name, &t.Criterion, &t.Region, &t.Active); err != nil {
		return NormativeTable{}, err
	}
	t.TestType = TestType(tt)
	return t, nil
}

func (s *SQLRepository) ListActiveTables(ctx context.Context, testType TestType) ([]NormativeTable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tableCols+` FROM normative_tables WHERE test_type=$1 AND active=TRUE ORDER BY id`,
		string(testType))
	if err != nil {
		return nil, errors.Wrap(err, "list active tables")
	}
	defer rows.Close()

	var out []NormativeTable
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan table")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLRepository) GetTable(ctx context.Context, tableID int64) (NormativeTable, error) {
	t, err := scanTable(s.db.QueryRowContext(ctx,
		`SELECT `+tableCols+` FROM normative_tables WHERE id=$1`, tableID))
	if errors.Is(err, sql.ErrNoRows) {
		return NormativeTable{}, errors.Wrapf(ErrTableNotFound, "id %d", tableID)
	}
	if err != nil {
		return NormativeTable{}, errors.Wrap(err, "get table")
	}
	return t, nil
}

func (s *SQLRepository) GetTableName(ctx context.Context, tableID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM normative_tables WHERE id=$1`, tableID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(ErrTableNotFound, "id %d", tableID)
	}
	if err != nil {
		return "", errors.Wrap(err, "get table name")
	}
	return name, nil
}

func (s *SQLRepository) FindTableByName(ctx context.Context, patterns ...string) (NormativeTable, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tableCols+` FROM normative_tables ORDER BY id`)
	if err != nil {
		return NormativeTable{}, errors.Wrap(err, "find table by name")
	}
	defer rows.Close()

	var all []NormativeTable
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return NormativeTable{}, errors.Wrap(err, "scan table")
		}
		all = append(all, t)
	}
	if err := rows.Err(); err != nil {
		return NormativeTable{}, err
	}
	// Name matching happens here rather than with LIKE so accents compare
	// the same way on every driver.
	for _, p := range patterns {
		p = Normalize(p)
		for _, t := range all {
			if strings.Contains(Normalize(t.Name), p) {
				return t, nil
			}
		}
	}
	return NormativeTable{}, errors.Wrapf(ErrTableNotFound, "name patterns %v", patterns)
}

func (s *SQLRepository) ListRows(ctx context.Context, tableID int64, f RowFilter) ([]NormativeRow, error) {
	q := `SELECT id, table_id, min_score, max_score,
	             COALESCE(education,''), COALESCE(modality,''), COALESCE(license_context,''), COALESCE(eval_subtype,''),
	             percentile, classification, converted_score
	        FROM normative_rows
	       WHERE table_id=$1`
	args := []any{tableID}
	if f.Score != nil {
		q += ` AND (min_score IS NULL OR min_score <= $2) AND (max_score IS NULL OR max_score >= $2)`
		args = append(args, *f.Score)
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list rows")
	}
	defer rows.Close()

	var out []NormativeRow
	for rows.Next() {
		var (
			r      NormativeRow
			lo, hi sql.NullFloat64
			pct    sql.NullInt64
			conv   sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.TableID, &lo, &hi,
			&r.Education, &r.Modality, &r.LicenseContext, &r.Subtype,
			&pct, &r.Classification, &conv); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		if lo.Valid {
			r.Min = &lo.Float64
		}
		if hi.Valid {
			r.Max = &hi.Float64
		}
		if pct.Valid {
			p := int(pct.Int64)
			r.Percentile = &p
		}
		if conv.Valid {
			r.Converted = &conv.Float64
		}
		// categorical keys compare in Go: diacritics ignored, education by tier
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out, rows.Err()
}
