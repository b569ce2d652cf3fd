package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/table-order/internal/model"
)

// OrderRepo provides data access to orders, order_items, order_history and
// the per-store per-day order_counters.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the provided database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// BusinessDateLayout is the format of the business_date column values.
const BusinessDateLayout = "2006-01-02"

const orderColumns = "id, session_id, store_id, table_id, order_number, subtotal_amount, tip_rate, tip_amount, total_amount, status, created_at, updated_at"

func scanOrder(s rowScanner) (*model.Order, error) {
	var (
		o      model.Order
		status string
	)
	if err := s.Scan(&o.ID, &o.SessionID, &o.StoreID, &o.TableID, &o.OrderNumber, &o.SubtotalAmount, &o.TipRate, &o.TipAmount, &o.TotalAmount, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	o.Items = []model.OrderItem{}
	return &o, nil
}

// NextOrderSeqTx reserves the next order sequence for a store and business
// day within the caller's transaction.  The upsert takes the counter row
// lock, so concurrent callers for the same store and day are serialized
// until the transaction ends and each observes a distinct value.
func (r *OrderRepo) NextOrderSeqTx(ctx context.Context, tx *sql.Tx, storeID uint64, day string) (int, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO order_counters (store_id, business_date, last_seq) VALUES (?, ?, 1)
         ON DUPLICATE KEY UPDATE last_seq = last_seq + 1`,
		storeID, day); err != nil {
		return 0, err
	}
	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT last_seq FROM order_counters WHERE store_id = ? AND business_date = ?`,
		storeID, day).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// NextOrderSeq is NextOrderSeqTx in its own transaction.
func (r *OrderRepo) NextOrderSeq(ctx context.Context, storeID uint64, day string) (int, error) {
	var seq int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		seq, err = r.NextOrderSeqTx(ctx, tx, storeID, day)
		return err
	})
	return seq, err
}

// CreateWithItems persists an order and all of its items atomically.  The
// session row is re-read FOR UPDATE so an order cannot land on a session
// that was ended after validation; ErrSessionNotFound or ErrSessionEnded
// is returned in that case.  The order number is reserved in the same
// transaction and written back into o together with the generated IDs.
func (r *OrderRepo) CreateWithItems(ctx context.Context, o *model.Order, day string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var ended sql.NullTime
		err := tx.QueryRowContext(ctx, `SELECT ended_at FROM table_sessions WHERE id = ? FOR UPDATE`, o.SessionID).Scan(&ended)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if ended.Valid {
			return ErrSessionEnded
		}

		seq, err := r.NextOrderSeqTx(ctx, tx, o.StoreID, day)
		if err != nil {
			return err
		}
		o.OrderNumber = model.FormatOrderNumber(seq)

		res, err := tx.ExecContext(ctx,
			`INSERT INTO orders (session_id, store_id, table_id, business_date, order_number, subtotal_amount, tip_rate, tip_amount, total_amount, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.SessionID, o.StoreID, o.TableID, day, o.OrderNumber, o.SubtotalAmount, o.TipRate, o.TipAmount, o.TotalAmount, string(o.Status), o.CreatedAt, o.UpdatedAt)
		if err != nil {
			if isDuplicateKey(err) {
				return ErrConflict
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		o.ID = uint64(id)

		for i := range o.Items {
			it := &o.Items[i]
			it.OrderID = o.ID
			if it.CreatedAt.IsZero() {
				it.CreatedAt = o.CreatedAt
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, menu_id, menu_name, menu_price, quantity, subtotal, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				it.OrderID, it.MenuID, it.MenuName, it.MenuPrice, it.Quantity, it.Subtotal, it.CreatedAt)
			if err != nil {
				return err
			}
			itemID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			it.ID = uint64(itemID)
		}
		return nil
	})
}

// ChangeStatus sets a new status on an order and appends the matching
// order_history row in one transaction.  The previous status is returned.
// The order row is locked FOR UPDATE so concurrent changes produce a
// history chain whose old/new values line up.
func (r *OrderRepo) ChangeStatus(ctx context.Context, id uint64, status model.OrderStatus, at time.Time) (model.OrderStatus, error) {
	var old string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ? FOR UPDATE`, id).Scan(&old)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_history (order_id, old_status, new_status, changed_at) VALUES (?, ?, ?, ?)`,
			id, old, string(status), at); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, string(status), at, id)
		return err
	})
	if err != nil {
		return "", err
	}
	return model.OrderStatus(old), nil
}

// GetByID returns an order with its items.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	orders := []*model.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByStore returns the orders of a store, newest first.  An empty
// status lists every status.  limit <= 0 means no limit.
func (r *OrderRepo) ListByStore(ctx context.Context, storeID uint64, status model.OrderStatus, limit int) ([]model.Order, error) {
	q := "SELECT " + orderColumns + " FROM orders WHERE store_id = ?"
	args := []any{storeID}
	if status != "" {
		q += " AND status = ?"
		args = append(args, string(status))
	}
	q += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return r.list(ctx, q, args...)
}

// ListBySession returns the orders placed within a session, oldest first.
func (r *OrderRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Order, error) {
	return r.list(ctx, "SELECT "+orderColumns+" FROM orders WHERE session_id = ? ORDER BY created_at, id", sessionID)
}

func (r *OrderRepo) list(ctx context.Context, q string, args ...any) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var ptrs []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, ptrs); err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(ptrs))
	for _, o := range ptrs {
		out = append(out, *o)
	}
	return out, nil
}

// attachItems loads the items of all given orders with one query.
func (r *OrderRepo) attachItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[uint64]*model.Order, len(orders))
	args := make([]any, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		args = append(args, o.ID)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, menu_id, menu_name, menu_price, quantity, subtotal, created_at
         FROM order_items WHERE order_id IN (`+placeholders(len(args))+`) ORDER BY order_id, id`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuID, &it.MenuName, &it.MenuPrice, &it.Quantity, &it.Subtotal, &it.CreatedAt); err != nil {
			return err
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

// History returns the status changes of an order, oldest first.
func (r *OrderRepo) History(ctx context.Context, orderID uint64) ([]model.OrderHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, old_status, new_status, changed_at FROM order_history WHERE order_id = ? ORDER BY changed_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.OrderHistory{}
	for rows.Next() {
		var (
			h          model.OrderHistory
			prev, next string
		)
		if err := rows.Scan(&h.ID, &h.OrderID, &prev, &next, &h.ChangedAt); err != nil {
			return nil, err
		}
		h.OldStatus, h.NewStatus = model.OrderStatus(prev), model.OrderStatus(next)
		out = append(out, h)
	}
	return out, rows.Err()
}
