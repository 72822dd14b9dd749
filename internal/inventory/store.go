package inventory

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/db"
)

// ErrInvalidQuantity rejects non-positive restocks.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// Store is the administrative side of inventory: listing and restocking.
type Store struct {
	db     *sql.DB
	driver db.Driver
}

func NewStore(conn *sql.DB, driver db.Driver) *Store {
	return &Store{db: conn, driver: driver}
}

func (s *Store) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, quantity, updated_at FROM stock_items ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "list stock items")
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Quantity, &it.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan stock item")
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Movements lists the most recent movements of an item, newest first.
func (s *Store) Movements(ctx context.Context, itemID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_id, direction, quantity, evaluation_id, user_id, note, created_at
		 FROM stock_movements WHERE item_id=$1 ORDER BY id DESC LIMIT $2`, itemID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list stock movements")
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		var dir string
		var evalID sql.NullInt64
		if err := rows.Scan(&m.ID, &m.ItemID, &dir, &m.Quantity, &evalID, &m.UserID, &m.Note, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan stock movement")
		}
		m.Direction = Direction(dir)
		if evalID.Valid {
			v := evalID.Int64
			m.EvaluationID = &v
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Restock adds qty units to the named item, creating it when absent, and
// records an inbound movement.
func (s *Store) Restock(ctx context.Context, name string, qty int, userID int64, note string) (Item, error) {
	if qty <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	var it Item
	err := db.WithTx(ctx, s.db, db.TxOptions(s.driver), func(tx *sql.Tx) error {
		now := time.Now().Unix()
		err := tx.QueryRowContext(ctx,
			`INSERT INTO stock_items (name, quantity, updated_at) VALUES ($1,$2,$3)
			 ON CONFLICT (name) DO UPDATE SET quantity=stock_items.quantity+EXCLUDED.quantity, updated_at=EXCLUDED.updated_at
			 RETURNING id, name, quantity, updated_at`,
			name, qty, now).Scan(&it.ID, &it.Name, &it.Quantity, &it.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, "restock item")
		}
		_, err = insertMovement(ctx, tx, Movement{
			ItemID:    it.ID,
			Direction: Inbound,
			Quantity:  qty,
			UserID:    userID,
			Note:      note,
			CreatedAt: now,
		})
		return err
	})
	return it, err
}
