package inventory

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-norms/internal/db"
	"github.com/mind-engage/mindengage-norms/internal/db/dbtest"
	"github.com/mind-engage/mindengage-norms/internal/norms"
)

func deductInTx(t *testing.T, conn *sql.DB, d *Deductor, req Request) (Outcome, error) {
	t.Helper()
	var out Outcome
	var dedErr error
	err := db.WithTx(context.Background(), conn, nil, func(tx *sql.Tx) error {
		out, dedErr = d.Deduct(context.Background(), tx, req)
		return nil
	})
	require.NoError(t, err)
	return out, dedErr
}

func quantity(t *testing.T, conn *sql.DB, name string) int {
	t.Helper()
	var q int
	require.NoError(t, conn.QueryRow(`SELECT quantity FROM stock_items WHERE name=$1`, name).Scan(&q))
	return q
}

func movements(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM stock_movements`).Scan(&n))
	return n
}

func TestDeduct_Success(t *testing.T) {
	conn := dbtest.Open(t)
	item := DefaultConsumption[norms.MultiRouteAttention].Item
	dbtest.StockItem(t, conn, item, 10)

	out, err := deductInTx(t, conn, NewDeductor(nil), Request{TestType: norms.MultiRouteAttention, EvaluationID: 7, UserID: 1})
	require.NoError(t, err)
	assert.True(t, out.Attempted)
	assert.True(t, out.Success)
	assert.Equal(t, 3, out.Sheets)
	require.NotNil(t, out.Remaining)
	assert.Equal(t, 7, *out.Remaining)
	assert.Equal(t, 7, quantity(t, conn, item))

	var dir string
	var q int
	var evalID int64
	require.NoError(t, conn.QueryRow(`SELECT direction, quantity, evaluation_id FROM stock_movements WHERE id=$1`, out.MovementID).
		Scan(&dir, &q, &evalID))
	assert.Equal(t, "outbound", dir)
	assert.Equal(t, -3, q)
	assert.Equal(t, int64(7), evalID)
}

func TestDeduct_Shortfall(t *testing.T) {
	conn := dbtest.Open(t)
	item := DefaultConsumption[norms.MultiRouteAttention].Item
	dbtest.StockItem(t, conn, item, 2)

	out, err := deductInTx(t, conn, NewDeductor(nil), Request{TestType: norms.MultiRouteAttention, EvaluationID: 1, UserID: 1})
	require.NoError(t, err)
	assert.True(t, out.Attempted)
	assert.False(t, out.Success)
	assert.Equal(t, ReasonInsufficient, out.Reason)
	assert.Equal(t, 2, *out.Remaining)
	assert.Equal(t, 2, quantity(t, conn, item))
	assert.Zero(t, movements(t, conn))
}

func TestDeduct_MissingItem(t *testing.T) {
	conn := dbtest.Open(t)
	out, err := deductInTx(t, conn, NewDeductor(nil), Request{TestType: norms.Memore, EvaluationID: 1, UserID: 1})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, ReasonMissingItem, out.Reason)
}

func TestDeduct_ExemptRole(t *testing.T) {
	conn := dbtest.Open(t)
	item := DefaultConsumption[norms.Memore].Item
	dbtest.StockItem(t, conn, item, 5)

	d := NewDeductor(nil, "External_Professional")
	out, err := deductInTx(t, conn, d, Request{TestType: norms.Memore, EvaluationID: 1, UserID: 1, Role: "external_professional"})
	require.NoError(t, err)
	assert.False(t, out.Attempted)
	assert.Equal(t, ReasonExempt, out.Reason)
	assert.Equal(t, 5, quantity(t, conn, item))
	assert.Zero(t, movements(t, conn))
}

func TestDeduct_ErrorRollsBackToSavepoint(t *testing.T) {
	conn := dbtest.Open(t)
	item := DefaultConsumption[norms.Memore].Item
	dbtest.StockItem(t, conn, item, 5)
	dbtest.Exec(t, conn, `DROP TABLE stock_movements`)

	err := db.WithTx(context.Background(), conn, nil, func(tx *sql.Tx) error {
		out, dedErr := NewDeductor(nil).Deduct(context.Background(), tx, Request{TestType: norms.Memore, EvaluationID: 1, UserID: 1})
		assert.Error(t, dedErr)
		assert.Equal(t, ReasonError, out.Reason)
		assert.False(t, out.Success)
		// the surrounding transaction is still usable
		_, err := tx.Exec(`UPDATE stock_items SET updated_at=1 WHERE name=$1`, item)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 5, quantity(t, conn, item))
}

func TestStore_RestockAndList(t *testing.T) {
	conn := dbtest.Open(t)
	s := NewStore(conn, db.DriverSQLite)
	ctx := context.Background()

	it, err := s.Restock(ctx, "MEMORE answer sheet", 20, 1, "initial")
	require.NoError(t, err)
	assert.Equal(t, 20, it.Quantity)

	it, err = s.Restock(ctx, "MEMORE answer sheet", 5, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 25, it.Quantity)

	_, err = s.Restock(ctx, "MEMORE answer sheet", 0, 1, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 25, items[0].Quantity)

	mv, err := s.Movements(ctx, it.ID, 0)
	require.NoError(t, err)
	require.Len(t, mv, 2)
	assert.Equal(t, Inbound, mv[0].Direction)
	assert.Equal(t, 5, mv[0].Quantity)
	assert.Nil(t, mv[0].EvaluationID)
}
