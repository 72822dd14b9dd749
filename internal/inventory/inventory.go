// Package inventory tracks the physical answer sheets each test consumes.
package inventory

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/db"
	"github.com/mind-engage/mindengage-norms/internal/norms"
)

type Direction string

const (
	Outbound Direction = "outbound"
	Inbound  Direction = "inbound"
)

type Item struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UpdatedAt int64  `json:"updated_at"`
}

// Movement is one signed stock change; outbound quantities are negative.
type Movement struct {
	ID           int64     `json:"id"`
	ItemID       int64     `json:"item_id"`
	Direction    Direction `json:"direction"`
	Quantity     int       `json:"quantity"`
	EvaluationID *int64    `json:"evaluation_id,omitempty"`
	UserID       int64     `json:"user_id"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    int64     `json:"created_at"`
}

// Consumption is what one application of a test uses up.
type Consumption struct {
	Item   string
	Sheets int
}

// DefaultConsumption maps each test type to its answer-sheet stock item.
var DefaultConsumption = map[norms.TestType]Consumption{
	norms.ConcentratedAttention:  {Item: "Concentrated attention answer sheet", Sheets: 1},
	norms.MatrixReasoning:        {Item: "Matrix reasoning answer sheet", Sheets: 1},
	norms.ThreeModalityAttention: {Item: "Three-modality attention answer sheet", Sheets: 1},
	norms.MultiRouteAttention:    {Item: "Multi-route attention answer sheet", Sheets: 3},
	norms.GeneralIntelligence:    {Item: "General intelligence answer sheet", Sheets: 1},
	norms.DrivingMemory:          {Item: "Driving memory answer sheet", Sheets: 1},
	norms.ReasoningR1:            {Item: "R-1 answer sheet", Sheets: 1},
	norms.Memore:                 {Item: "MEMORE answer sheet", Sheets: 1},
}

// Outcome reports a deduction attempt. It is informational: a failed
// deduction never fails the calculation that triggered it.
type Outcome struct {
	Attempted  bool   `json:"attempted"`
	Success    bool   `json:"success"`
	Item       string `json:"item,omitempty"`
	Sheets     int    `json:"sheets,omitempty"`
	Remaining  *int   `json:"remaining,omitempty"`
	MovementID int64  `json:"movement_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

const (
	ReasonExempt       = "role exempt from stock control"
	ReasonDisabled     = "stock deduction not requested"
	ReasonUnmapped     = "no stock item for test type"
	ReasonMissingItem  = "stock item not found"
	ReasonInsufficient = "insufficient stock"
	ReasonError        = "stock update failed"
)

// Request identifies one deduction.
type Request struct {
	TestType     norms.TestType
	EvaluationID int64
	UserID       int64
	Role         string
}

// Deductor decrements stock atomically and records the movement.
type Deductor struct {
	consumption map[norms.TestType]Consumption
	exempt      map[string]bool
	now         func() time.Time
}

// NewDeductor builds a deductor; a nil map uses DefaultConsumption.
func NewDeductor(consumption map[norms.TestType]Consumption, exemptRoles ...string) *Deductor {
	if consumption == nil {
		consumption = DefaultConsumption
	}
	ex := make(map[string]bool, len(exemptRoles))
	for _, r := range exemptRoles {
		ex[strings.ToLower(strings.TrimSpace(r))] = true
	}
	return &Deductor{consumption: consumption, exempt: ex, now: time.Now}
}

// Exempt reports whether role bypasses stock control.
func (d *Deductor) Exempt(role string) bool {
	return d.exempt[strings.ToLower(strings.TrimSpace(role))]
}

// Consumption returns the mapping for a test type.
func (d *Deductor) Consumption(tt norms.TestType) (Consumption, bool) {
	c, ok := d.consumption[tt]
	return c, ok
}

// Deduct must run on a transaction. The stock statements are wrapped in a
// savepoint so a database error here rolls back only the deduction; the
// error is returned for logging and the Outcome still describes it.
func (d *Deductor) Deduct(ctx context.Context, tx db.Querier, req Request) (Outcome, error) {
	if d.Exempt(req.Role) {
		return Outcome{Reason: ReasonExempt}, nil
	}
	c, ok := d.consumption[req.TestType]
	if !ok || c.Sheets <= 0 {
		return Outcome{Reason: ReasonUnmapped}, nil
	}
	out := Outcome{Attempted: true, Item: c.Item, Sheets: c.Sheets}

	if _, err := tx.ExecContext(ctx, `SAVEPOINT stock_deduction`); err != nil {
		out.Reason = ReasonError
		return out, errors.Wrap(err, "stock savepoint")
	}
	if err := d.deduct(ctx, tx, req, c, &out); err != nil {
		if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT stock_deduction`); rbErr != nil {
			err = errors.Wrapf(err, "rollback to savepoint: %v", rbErr)
		} else {
			_, _ = tx.ExecContext(ctx, `RELEASE SAVEPOINT stock_deduction`)
		}
		out.Success = false
		out.Remaining = nil
		out.MovementID = 0
		out.Reason = ReasonError
		return out, err
	}
	if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT stock_deduction`); err != nil {
		return out, errors.Wrap(err, "release stock savepoint")
	}
	return out, nil
}

func (d *Deductor) deduct(ctx context.Context, tx db.Querier, req Request, c Consumption, out *Outcome) error {
	now := d.now().Unix()
	res, err := tx.ExecContext(ctx,
		`UPDATE stock_items SET quantity=quantity-$1, updated_at=$2 WHERE name=$3 AND quantity >= $1`,
		c.Sheets, now, c.Item)
	if err != nil {
		return errors.Wrap(err, "decrement stock")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "decrement stock")
	}

	var itemID int64
	var qty int
	err = tx.QueryRowContext(ctx, `SELECT id, quantity FROM stock_items WHERE name=$1`, c.Item).Scan(&itemID, &qty)
	if errors.Is(err, sql.ErrNoRows) {
		out.Reason = ReasonMissingItem
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read stock")
	}
	out.Remaining = &qty
	if n == 0 {
		out.Reason = ReasonInsufficient
		return nil
	}

	evalID := req.EvaluationID
	mv, err := insertMovement(ctx, tx, Movement{
		ItemID:       itemID,
		Direction:    Outbound,
		Quantity:     -c.Sheets,
		EvaluationID: &evalID,
		UserID:       req.UserID,
		Note:         string(req.TestType),
		CreatedAt:    now,
	})
	if err != nil {
		return err
	}
	out.MovementID = mv
	out.Success = true
	return nil
}

func insertMovement(ctx context.Context, q db.Querier, m Movement) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO stock_movements (item_id, direction, quantity, evaluation_id, user_id, note, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		m.ItemID, string(m.Direction), m.Quantity, m.EvaluationID, m.UserID, m.Note, m.CreatedAt).Scan(&id)
	return id, errors.Wrap(err, "record stock movement")
}
