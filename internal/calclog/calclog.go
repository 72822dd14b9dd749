// Package calclog is the append-only record of calculations that were not
// saved to an evaluation.
package calclog

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/db"
)

type Entry struct {
	ID        string          `json:"id"`
	OwnerID   int64           `json:"owner_id"`
	TestType  string          `json:"test_type"`
	RawInput  json.RawMessage `json:"raw_input"`
	Result    json.RawMessage `json:"result"`
	TableID   *int64          `json:"table_id,omitempty"`
	Origin    string          `json:"origin,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

type Repo struct{ db db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{db: q} }

func (r *Repo) Append(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO calculation_log (id, owner_id, test_type, raw_input, result, table_id, origin, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.OwnerID, e.TestType, string(e.RawInput), string(e.Result), e.TableID, e.Origin, e.CreatedAt)
	return errors.Wrap(err, "append calculation log")
}

// Recent lists the newest entries; ownerID 0 means every owner.
func (r *Repo) Recent(ctx context.Context, ownerID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, test_type, raw_input, result, table_id, origin, created_at
		 FROM calculation_log WHERE ($1 = 0 OR owner_id = $1)
		 ORDER BY created_at DESC, id LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list calculation log")
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var raw, result string
		var table sql.NullInt64
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.TestType, &raw, &result, &table, &e.Origin, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan calculation log")
		}
		e.RawInput, e.Result = json.RawMessage(raw), json.RawMessage(result)
		if table.Valid {
			v := table.Int64
			e.TableID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
