package evaluation

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/calclog"
	"github.com/mind-engage/mindengage-norms/internal/db"
	"github.com/mind-engage/mindengage-norms/internal/logging"
	"github.com/mind-engage/mindengage-norms/internal/norms"
)

// Store persists evaluations and results. Methods taking a Querier run on
// the caller's transaction.
type Store interface {
	ExamineeExists(ctx context.Context, q db.Querier, id int64) (bool, error)
	UpsertEvaluation(ctx context.Context, q db.Querier, ev Evaluation) (Evaluation, error)
	InsertEvaluation(ctx context.Context, q db.Querier, ev Evaluation) (Evaluation, error)
	LatestEvaluation(ctx context.Context, q db.Querier, examineeID int64) (Evaluation, bool, error)
	TouchApplicationDate(ctx context.Context, q db.Querier, id int64, date string) error
	ReplaceResult(ctx context.Context, q db.Querier, r TestResult) (int64, error)
	OwnerRole(ctx context.Context, q db.Querier, ownerID int64) (string, bool, error)
	AppendCalculation(ctx context.Context, e calclog.Entry) error
	GetEvaluation(ctx context.Context, id int64) (Evaluation, error)
}

type SQLStore struct {
	db   *sql.DB
	calc *calclog.Repo
	log  logging.Logger
	// tableUsed records whether test_results has table_used_id. It starts
	// optimistic, is settled by Probe and drops to false on the first
	// unknown-column failure.
	tableUsed atomic.Bool
}

func NewSQLStore(conn *sql.DB, log logging.Logger) *SQLStore {
	s := &SQLStore{db: conn, calc: calclog.NewRepo(conn), log: log}
	s.tableUsed.Store(true)
	return s
}

// Probe resolves schema capabilities once, at startup.
func (s *SQLStore) Probe(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT table_used_id FROM test_results WHERE 1=0`)
	if db.IsUnknownColumn(err) {
		s.tableUsed.Store(false)
		s.log.Warnf("test_results has no table_used_id column; results are saved without the table reference")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "probe test_results")
	}
	s.tableUsed.Store(true)
	return rows.Close()
}

// RecordsTableUsed reports the current schema capability.
func (s *SQLStore) RecordsTableUsed() bool { return s.tableUsed.Load() }

const evalCols = `id, examinee_id, owner_id, report_number, category, application_date, created_at`

func scanEvaluation(sc interface{ Scan(...any) error }) (Evaluation, error) {
	var ev Evaluation
	var examinee sql.NullInt64
	if err := sc.Scan(&ev.ID, &examinee, &ev.OwnerID, &ev.ReportNumber, &ev.Category, &ev.ApplicationDate, &ev.CreatedAt); err != nil {
		return Evaluation{}, err
	}
	if examinee.Valid {
		v := examinee.Int64
		ev.ExamineeID = &v
	}
	return ev, nil
}

func (s *SQLStore) ExamineeExists(ctx context.Context, q db.Querier, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM examinees WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, errors.Wrap(err, "lookup examinee")
}

// UpsertEvaluation inserts ev or, when (examinee, report number) exists,
// moves the existing evaluation's application date to ev's.
func (s *SQLStore) UpsertEvaluation(ctx context.Context, q db.Querier, ev Evaluation) (Evaluation, error) {
	row := q.QueryRowContext(ctx,
		`INSERT INTO evaluations (examinee_id, owner_id, report_number, category, application_date, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (examinee_id, report_number) DO UPDATE SET application_date=EXCLUDED.application_date
		 RETURNING `+evalCols,
		ev.ExamineeID, ev.OwnerID, ev.ReportNumber, ev.Category, ev.ApplicationDate, time.Now().Unix())
	out, err := scanEvaluation(row)
	return out, errors.Wrap(err, "upsert evaluation")
}

func (s *SQLStore) InsertEvaluation(ctx context.Context, q db.Querier, ev Evaluation) (Evaluation, error) {
	row := q.QueryRowContext(ctx,
		`INSERT INTO evaluations (examinee_id, owner_id, report_number, category, application_date, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING `+evalCols,
		ev.ExamineeID, ev.OwnerID, ev.ReportNumber, ev.Category, ev.ApplicationDate, time.Now().Unix())
	out, err := scanEvaluation(row)
	return out, errors.Wrap(err, "insert evaluation")
}

func (s *SQLStore) LatestEvaluation(ctx context.Context, q db.Querier, examineeID int64) (Evaluation, bool, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+evalCols+` FROM evaluations WHERE examinee_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		examineeID)
	ev, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Evaluation{}, false, nil
	}
	if err != nil {
		return Evaluation{}, false, errors.Wrap(err, "latest evaluation")
	}
	return ev, true, nil
}

func (s *SQLStore) TouchApplicationDate(ctx context.Context, q db.Querier, id int64, date string) error {
	_, err := q.ExecContext(ctx, `UPDATE evaluations SET application_date=$1 WHERE id=$2`, date, id)
	return errors.Wrap(err, "update application date")
}

// ReplaceResult deletes any result for (evaluation, test type) and inserts
// r. It must run on a transaction.
func (s *SQLStore) ReplaceResult(ctx context.Context, q db.Querier, r TestResult) (int64, error) {
	if _, err := q.ExecContext(ctx, `DELETE FROM test_results WHERE evaluation_id=$1 AND test_type=$2`,
		r.EvaluationID, string(r.TestType)); err != nil {
		return 0, errors.Wrap(err, "delete previous result")
	}
	if s.tableUsed.Load() {
		id, err := s.insertWithTable(ctx, q, r)
		if err == nil {
			return id, nil
		}
		if !db.IsUnknownColumn(err) {
			return 0, err
		}
		s.tableUsed.Store(false)
		s.log.Warnf("test_results.table_used_id missing, retrying without it: %v", err)
	}
	return s.insertResult(ctx, q, r, false)
}

// insertWithTable isolates the richer insert in a savepoint so a schema
// failure leaves the transaction usable.
func (s *SQLStore) insertWithTable(ctx context.Context, q db.Querier, r TestResult) (int64, error) {
	if _, err := q.ExecContext(ctx, `SAVEPOINT result_insert`); err != nil {
		return 0, errors.Wrap(err, "result savepoint")
	}
	id, err := s.insertResult(ctx, q, r, true)
	if err != nil {
		if _, rbErr := q.ExecContext(ctx, `ROLLBACK TO SAVEPOINT result_insert`); rbErr != nil {
			return 0, errors.Wrapf(err, "rollback to savepoint: %v", rbErr)
		}
	}
	if _, relErr := q.ExecContext(ctx, `RELEASE SAVEPOINT result_insert`); relErr != nil && err == nil {
		return 0, errors.Wrap(relErr, "release result savepoint")
	}
	return id, err
}

func (s *SQLStore) insertResult(ctx context.Context, q db.Querier, r TestResult, withTable bool) (int64, error) {
	var id int64
	var err error
	now := time.Now().Unix()
	if withTable {
		err = q.QueryRowContext(ctx,
			`INSERT INTO test_results (evaluation_id, test_type, raw_input, raw_score, percentile, classification, details, table_used_id, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
			r.EvaluationID, string(r.TestType), string(r.RawInput), r.RawScore, r.Percentile, r.Classification,
			string(r.Details), r.TableUsedID, now).Scan(&id)
	} else {
		err = q.QueryRowContext(ctx,
			`INSERT INTO test_results (evaluation_id, test_type, raw_input, raw_score, percentile, classification, details, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
			r.EvaluationID, string(r.TestType), string(r.RawInput), r.RawScore, r.Percentile, r.Classification,
			string(r.Details), now).Scan(&id)
	}
	return id, errors.Wrap(err, "insert result")
}

func (s *SQLStore) OwnerRole(ctx context.Context, q db.Querier, ownerID int64) (string, bool, error) {
	var role string
	err := q.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, ownerID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "lookup owner role")
	}
	return role, true, nil
}

func (s *SQLStore) AppendCalculation(ctx context.Context, e calclog.Entry) error {
	return s.calc.Append(ctx, e)
}

// GetEvaluation loads an evaluation and its results, ordered by test type.
func (s *SQLStore) GetEvaluation(ctx context.Context, id int64) (Evaluation, error) {
	ev, err := scanEvaluation(s.db.QueryRowContext(ctx, `SELECT `+evalCols+` FROM evaluations WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Evaluation{}, errors.Wrapf(ErrEvaluationNotFound, "id %d", id)
	}
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "get evaluation")
	}

	withTable := s.tableUsed.Load()
	cols := `id, evaluation_id, test_type, raw_input, raw_score, percentile, classification, details, created_at`
	if withTable {
		cols += `, table_used_id`
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+cols+` FROM test_results WHERE evaluation_id=$1 ORDER BY test_type`, id)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "list results")
	}
	defer rows.Close()
	for rows.Next() {
		var r TestResult
		var tt, raw, details string
		var pct, tableUsed sql.NullInt64
		dest := []any{&r.ID, &r.EvaluationID, &tt, &raw, &r.RawScore, &pct, &r.Classification, &details, &r.CreatedAt}
		if withTable {
			dest = append(dest, &tableUsed)
		}
		if err := rows.Scan(dest...); err != nil {
			return Evaluation{}, errors.Wrap(err, "scan result")
		}
		r.TestType = norms.TestType(tt)
		r.RawInput = json.RawMessage(raw)
		r.Details = json.RawMessage(details)
		if pct.Valid {
			p := int(pct.Int64)
			r.Percentile = &p
		}
		if tableUsed.Valid {
			v := tableUsed.Int64
			r.TableUsedID = &v
		}
		ev.Results = append(ev.Results, r)
	}
	return ev, rows.Err()
}
